package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const filterRulesPath = "/filter-rules"

// FilterRuleService manages filter rules.
type FilterRuleService struct {
	requester Requester
}

func (s *FilterRuleService) Create(ctx context.Context, request *FilterRuleRequest) (*FilterRule, error) {
	return s.write(ctx, http.MethodPost, filterRulesPath, request)
}

func (s *FilterRuleService) List(ctx context.Context) ([]*FilterRule, error) {
	var ret []*FilterRule
	if _, err := s.requester.Do(ctx, http.MethodGet, filterRulesPath, nil, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// Update replaces an existing rule.
func (s *FilterRuleService) Update(ctx context.Context, id uuid.UUID, request *FilterRuleRequest) (*FilterRule, error) {
	return s.write(ctx, http.MethodPut, filterRulesPath+"/"+id.String(), request)
}

func (s *FilterRuleService) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.requester.Do(ctx, http.MethodDelete, filterRulesPath+"/"+id.String(), nil, nil)
	return err
}

func (s *FilterRuleService) write(ctx context.Context, method, path string, request *FilterRuleRequest) (*FilterRule, error) {
	if err := Validate(request); err != nil {
		return nil, err
	}
	ret := &FilterRule{}
	if _, err := s.requester.Do(ctx, method, path, request, ret); err != nil {
		return nil, err
	}
	return ret, nil
}
