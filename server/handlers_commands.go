package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/command-tender/backend/store"
	"github.com/onnwee/command-tender/backend/telemetry"
)

// maxBodyBytes bounds write request bodies.
const maxBodyBytes = 64 << 10

// HandleCommandsList returns the fixed catalog merged with the custom commands.
func (h *Handlers) HandleCommandsList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.merger.Render(r.Context()))
}

// HandleCommandGet returns a single custom command, for the bot to resolve a trigger.
func (h *Handlers) HandleCommandGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		writeStoreError(w, r, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleCommandAdd creates a custom command from {"name", "response"}.
func (h *Handlers) HandleCommandAdd(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Response string `json:"response"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Name) == "" || strings.TrimSpace(body.Response) == "" {
		telemetry.RecordMutation("add", "invalid")
		writeError(w, http.StatusBadRequest, "Missing name or response")
		return
	}

	ctx, span := telemetry.StartSpan(r.Context(), "commands", "command.add", telemetry.CommandAttrs("add", body.Name)...)
	defer span.End()
	c, err := h.store.Add(ctx, body.Name, body.Response)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.RecordMutation("add", resultLabel(err))
		writeStoreError(w, r, "add", err)
		return
	}
	telemetry.SetSpanSuccess(span)
	telemetry.RecordMutation("add", "ok")
	telemetry.LoggerWithCorr(r.Context()).Info("command added", slog.String("command", c.Name), slog.String("component", "http"))
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "command": c.Name})
}

// HandleCommandEdit replaces the response of an existing command from {"response"}.
func (h *Handlers) HandleCommandEdit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Response string `json:"response"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Response) == "" {
		telemetry.RecordMutation("edit", "invalid")
		writeError(w, http.StatusBadRequest, "Missing response")
		return
	}

	ctx, span := telemetry.StartSpan(r.Context(), "commands", "command.edit", telemetry.CommandAttrs("edit", r.PathValue("name"))...)
	defer span.End()
	c, err := h.store.Edit(ctx, r.PathValue("name"), body.Response)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.RecordMutation("edit", resultLabel(err))
		writeStoreError(w, r, "edit", err)
		return
	}
	telemetry.SetSpanSuccess(span)
	telemetry.RecordMutation("edit", "ok")
	telemetry.LoggerWithCorr(r.Context()).Info("command edited", slog.String("command", c.Name), slog.String("component", "http"))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "command_edited": c.Name})
}

// HandleCommandDelete removes a command. The name may be passed with or without "!".
func (h *Handlers) HandleCommandDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), "commands", "command.delete", telemetry.CommandAttrs("delete", r.PathValue("name"))...)
	defer span.End()
	name, err := h.store.Delete(ctx, r.PathValue("name"))
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.RecordMutation("delete", resultLabel(err))
		writeStoreError(w, r, "delete", err)
		return
	}
	telemetry.SetSpanSuccess(span)
	telemetry.RecordMutation("delete", "ok")
	telemetry.LoggerWithCorr(r.Context()).Info("command deleted", slog.String("command", name), slog.String("component", "http"))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "command_deleted": name})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

// statusFor maps store errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func resultLabel(err error) string {
	switch statusFor(err) {
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "exists"
	default:
		return "error"
	}
}

func writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := "Command not found"
	switch status {
	case http.StatusBadRequest:
		msg = err.Error()
	case http.StatusConflict:
		msg = "Command already exists"
	case http.StatusServiceUnavailable, http.StatusInternalServerError:
		// Storage details stay in the logs.
		telemetry.LoggerWithCorr(r.Context()).Error("command store failure", slog.String("op", op), slog.Any("err", err), slog.String("component", "http"))
		msg = "Storage unavailable"
	}
	writeError(w, status, msg)
}
