package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"momentum/pkg/persistence"
	"momentum/pkg/playbook"
)

// dataRequest is the persistence function wire envelope. Pointer fields
// distinguish absent from zero so missing-field validation stays exact.
//
//nolint:govet // struct alignment optimization not critical for this type
type dataRequest struct {
	Action       string                   `json:"action"`
	Playbook     *playbook.Playbook       `json:"playbook,omitempty"`
	PlaybookID   string                   `json:"playbookId,omitempty"`
	ActionID     string                   `json:"actionId,omitempty"`
	Position     *int                     `json:"position,omitempty"`
	ActionRow    *playbook.Action         `json:"actionRow,omitempty"`
	SubActionRow *playbook.SubAction      `json:"subActionRow,omitempty"`
	SubActions   *[]playbook.SubAction    `json:"subActions,omitempty"`
	JournalEntry *string                  `json:"journalEntry,omitempty"`
	Profile      *persistence.UserProfile `json:"profile,omitempty"`
}

type dataResponse struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleData authenticates the bearer token against the sessions table and
// dispatches the persistence operation against the caller's rows.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeDataError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req dataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDataError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := s.dispatch(userID, &req)
	if err != nil {
		var badReq *badRequestError
		switch {
		case errors.As(err, &badReq):
			writeDataError(w, http.StatusBadRequest, badReq.msg)
		case errors.Is(err, persistence.ErrNotFound):
			writeDataError(w, http.StatusNotFound, "record not found")
		default:
			s.logger.Error("%s failed for user %s: %v", req.Action, userID, err)
			writeDataError(w, http.StatusInternalServerError, "operation failed")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(dataResponse{Success: true, Result: result})
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		writeDataError(w, http.StatusUnauthorized, "missing bearer token")
		return "", false
	}

	userID, err := s.ops.ResolveToken(token)
	if err != nil {
		if errors.Is(err, persistence.ErrSessionNotFound) {
			writeDataError(w, http.StatusUnauthorized, "invalid or expired token")
			return "", false
		}
		s.logger.Error("token resolution failed: %v", err)
		writeDataError(w, http.StatusInternalServerError, "authentication failed")
		return "", false
	}
	return userID, true
}

//nolint:cyclop // flat dispatch over the wire's action set
func (s *Server) dispatch(userID string, req *dataRequest) (any, error) {
	switch req.Action {
	case "savePlaybook":
		if req.Playbook == nil || req.Playbook.ID == "" {
			return nil, badRequest("playbook with id is required")
		}
		// Archiving is terminal; only saveHistory may write archived rows.
		archived, err := s.ops.IsPlaybookArchived(userID, req.Playbook.ID)
		if err != nil {
			return nil, err
		}
		if archived {
			return nil, badRequest("playbook is archived")
		}
		return nil, s.ops.UpsertPlaybook(userID, req.Playbook)

	case "saveHistory":
		if req.Playbook == nil || req.Playbook.ID == "" {
			return nil, badRequest("playbook with id is required")
		}
		if req.Playbook.ArchivedAt == nil {
			return nil, badRequest("history record must carry archivedAt")
		}
		return nil, s.ops.UpsertPlaybook(userID, req.Playbook)

	case "saveAction":
		if req.PlaybookID == "" || req.Position == nil || req.ActionRow == nil || req.ActionRow.ID == "" {
			return nil, badRequest("playbookId, position and actionRow are required")
		}
		return nil, s.ops.UpsertAction(userID, req.PlaybookID, *req.Position, req.ActionRow)

	case "saveSubAction":
		if req.PlaybookID == "" || req.ActionID == "" || req.Position == nil ||
			req.SubActionRow == nil || req.SubActionRow.ID == "" {
			return nil, badRequest("playbookId, actionId, position and subActionRow are required")
		}
		return nil, s.ops.UpsertSubAction(userID, req.PlaybookID, req.ActionID, *req.Position, req.SubActionRow)

	case "saveSubActions":
		if req.PlaybookID == "" || req.ActionID == "" || req.SubActions == nil {
			return nil, badRequest("playbookId, actionId and subActions are required")
		}
		return nil, s.ops.ReplaceSubActions(userID, req.PlaybookID, req.ActionID, *req.SubActions)

	case "saveJournal":
		if req.PlaybookID == "" || req.JournalEntry == nil {
			return nil, badRequest("playbookId and journalEntry are required")
		}
		return nil, s.ops.SaveJournal(userID, req.PlaybookID, *req.JournalEntry)

	case "getPlaybooks":
		return s.ops.GetActivePlaybooks(userID)

	case "getHistory":
		return s.ops.GetHistory(userID)

	case "saveProfile":
		if req.Profile == nil {
			return nil, badRequest("profile is required")
		}
		profile := *req.Profile
		// The token decides whose profile this is.
		profile.UserID = userID
		return nil, s.ops.UpsertUserProfile(&profile)

	case "getProfile":
		return s.ops.GetUserProfile(userID)

	default:
		return nil, badRequest("unknown action")
	}
}

type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &badRequestError{msg: msg}
}

func writeDataError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dataResponse{Success: false, Error: msg})
}
