package mockapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AddAccount registers a connected mailbox and returns its id.
func (s *Server) AddAccount(address string) uuid.UUID {
	s.mux.Lock()
	defer s.mux.Unlock()
	id := uuid.New()
	s.accounts[id] = map[string]interface{}{
		"id": id, "provider": "gmail", "emailAddress": address, "status": "ACTIVE", "createdAt": time.Now().UTC(),
	}
	return id
}

func (s *Server) route(w http.ResponseWriter, r *http.Request, email string) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"), "/")
	switch parts[0] {
	case "users":
		s.me(w, r, email)
	case "echo":
		echo(w, r)
	case "status":
		status(w, parts)
	case "email-accounts":
		s.emailAccounts(w, r, parts[1:])
	case "notification-channels":
		s.collection(w, r, parts[1:], s.channels, http.MethodPatch, func(body map[string]interface{}) {
			body["status"] = "ACTIVE"
			delete(body, "botToken")
			delete(body, "twilioSid")
		})
	case "filter-rules":
		s.collection(w, r, parts[1:], s.rules, http.MethodPut, nil)
	case "notifications":
		s.history(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (s *Server) me(w http.ResponseWriter, r *http.Request, email string) {
	s.mux.Lock()
	fails := s.behavior.ProfileFails
	u := s.users[email]
	s.mux.Unlock()
	if fails || u == nil {
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id": u.id, "email": u.email, "notificationsPaused": false, "createdAt": u.createdAt,
		"gravatarUrl": "https://www.gravatar.com/avatar/00000000000000000000000000000000?d=identicon&s=80",
	})
}

// echo answers with the method, query and body it received.
func echo(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	var body interface{}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &body)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"method":      r.Method,
		"query":       r.URL.RawQuery,
		"body":        body,
		"contentType": r.Header.Get("Content-Type"),
		"requestId":   r.Header.Get("X-Request-Id"),
		"userAgent":   r.Header.Get("User-Agent"),
	})
}

// status answers /status/{code} with that code.
func status(w http.ResponseWriter, parts []string) {
	code := http.StatusInternalServerError
	if len(parts) > 1 {
		if v, err := strconv.Atoi(parts[1]); err == nil {
			code = v
		}
	}
	if code == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "30")
	}
	if code == http.StatusNoContent {
		w.WriteHeader(code)
		return
	}
	writeError(w, code, "scripted status")
}

func (s *Server) emailAccounts(w http.ResponseWriter, r *http.Request, parts []string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if len(parts) == 0 || parts[0] == "" {
		list := make([]map[string]interface{}, 0, len(s.accounts))
		for _, account := range s.accounts {
			list = append(list, account)
		}
		writeJSON(w, http.StatusOK, list)
		return
	}
	if parts[0] == "connect" && r.Method == http.MethodPost {
		writeJSON(w, http.StatusOK, map[string]string{"authorizationUrl": "https://accounts.google.com/o/oauth2/auth?state=test"})
		return
	}
	id, err := uuid.Parse(parts[0])
	account, ok := s.accounts[id]
	if err != nil || !ok {
		writeError(w, http.StatusNotFound, "Email account not found")
		return
	}
	switch {
	case r.Method == http.MethodDelete:
		delete(s.accounts, id)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPatch && len(parts) == 2 && parts[1] == "pause":
		account["status"] = "PAUSED"
		writeJSON(w, http.StatusOK, account)
	case r.Method == http.MethodPatch && len(parts) == 2 && parts[1] == "resume":
		account["status"] = "ACTIVE"
		writeJSON(w, http.StatusOK, account)
	case r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, account)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// collection serves a generic create/list/update/delete resource.
func (s *Server) collection(w http.ResponseWriter, r *http.Request, parts []string, items map[uuid.UUID]map[string]interface{}, updateMethod string, decorate func(map[string]interface{})) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if len(parts) == 0 || parts[0] == "" {
		switch r.Method {
		case http.MethodGet:
			list := make([]map[string]interface{}, 0, len(items))
			for _, item := range items {
				list = append(list, item)
			}
			writeJSON(w, http.StatusOK, list)
		case http.MethodPost:
			body := map[string]interface{}{}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "Malformed body")
				return
			}
			id := uuid.New()
			body["id"] = id
			body["createdAt"] = time.Now().UTC()
			if decorate != nil {
				decorate(body)
			}
			items[id] = body
			writeJSON(w, http.StatusCreated, body)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}
	id, err := uuid.Parse(parts[0])
	item, ok := items[id]
	if err != nil || !ok {
		writeError(w, http.StatusNotFound, "Resource not found")
		return
	}
	switch r.Method {
	case http.MethodDelete:
		delete(items, id)
		w.WriteHeader(http.StatusNoContent)
	case updateMethod:
		body := map[string]interface{}{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Malformed body")
			return
		}
		for k, v := range body {
			item[k] = v
		}
		if decorate != nil {
			decorate(item)
		}
		writeJSON(w, http.StatusOK, item)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size <= 0 {
		size = 20
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	total := len(s.notifications)
	from := page * size
	if from > total {
		from = total
	}
	to := from + size
	if to > total {
		to = total
	}
	totalPages := (total + size - 1) / size
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"content":       s.notifications[from:to],
		"totalElements": total,
		"totalPages":    totalPages,
		"number":        page,
		"size":          size,
		"first":         page == 0,
		"last":          page >= totalPages-1,
	})
}
