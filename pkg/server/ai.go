package server

import (
	"encoding/json"
	"net/http"

	"momentum/pkg/gateway"
	"momentum/pkg/gateway/provider"
)

type aiRequest struct {
	Action gateway.Operation `json:"action"`
	gateway.Params
}

type aiError struct {
	Error string `json:"error"`
}

// handleAI proxies an AI operation to the configured provider using the
// server-held credential. The response body is the extracted JSON payload;
// shape validation stays on the client so both resolution paths share it.
func (s *Server) handleAI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAIError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.completer == nil {
		writeAIError(w, http.StatusInternalServerError, "no provider configured")
		return
	}

	var req aiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAIError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if msg, ok := validateAIParams(req.Action, req.Params); !ok {
		writeAIError(w, http.StatusBadRequest, msg)
		return
	}

	prompt, err := gateway.BuildPrompt(req.Action, req.Params)
	if err != nil {
		writeAIError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.completer.Complete(r.Context(), provider.Request{
		System:      gateway.SystemPrompt,
		Prompt:      prompt,
		MaxTokens:   provider.DefaultMaxTokens,
		Temperature: provider.DefaultTemperature,
		JSONOnly:    true,
	})
	if err != nil {
		s.logger.Error("%s completion failed: %v", req.Action, err)
		writeAIError(w, http.StatusBadGateway, "provider request failed")
		return
	}

	payload, err := gateway.ExtractJSON(resp.Content)
	if err != nil {
		s.logger.Error("%s produced no JSON payload", req.Action)
		writeAIError(w, http.StatusBadGateway, "provider returned no JSON payload")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(payload))
}

func validateAIParams(op gateway.Operation, params gateway.Params) (string, bool) {
	switch op {
	case gateway.OpGenerate:
		if params.FocusArea == "" {
			return "focusArea is required", false
		}
	case gateway.OpReroll:
		if params.FocusArea == "" || params.RejectedTaskTitle == "" {
			return "focusArea and rejectedTaskTitle are required", false
		}
	case gateway.OpBreakdown:
		if params.ParentTask == "" {
			return "parentTask is required", false
		}
	case gateway.OpClassifyBlock:
		if params.StuckInput == "" || params.FrictionInput == "" {
			return "stuckInput and frictionInput are required", false
		}
	case gateway.OpMomentumSequence:
		if params.StuckInput == "" || params.FrictionInput == "" || params.BlockPattern == "" {
			return "stuckInput, frictionInput and blockPattern are required", false
		}
	default:
		return "unknown action", false
	}
	return "", true
}

func writeAIError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(aiError{Error: msg})
}
