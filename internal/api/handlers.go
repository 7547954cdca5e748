package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starford/mindpulse/internal/models"
	"github.com/starford/mindpulse/internal/reconcile"
	"github.com/starford/mindpulse/internal/reminderservice"
	"github.com/starford/mindpulse/internal/view"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *reminderservice.Service
	now func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(svc *reminderservice.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// ListReminders handles GET /api/reminders.
//
//	@Summary		List reminders
//	@Description	Insertion order unless sorted=true (pending first, then by time).
//	@Tags			reminders
//	@Produce		json
//	@Param			filter	query		string	false	"Subset"	Enums(all, pending, done)
//	@Param			sorted	query		bool	false	"Presentation order"
//	@Success		200		{array}		ReminderItem
//	@Failure		400		{object}	CommandResult
//	@Security		BearerAuth
//	@Router			/reminders [get]
func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := view.ParseFilter(q.Get("filter"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	sorted, _ := strconv.ParseBool(q.Get("sorted"))

	list, err := h.svc.List(r.Context())
	if err != nil {
		writeCommandError(w, "list reminders", err)
		return
	}
	list = view.Apply(list, filter)
	if sorted {
		list = view.Sort(list)
	}
	writeJSON(w, http.StatusOK, view.Decorate(list, h.now()))
}

// Stats handles GET /api/reminders/stats.
//
//	@Summary		Count reminders by completion
//	@Tags			reminders
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/reminders/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		writeCommandError(w, "reminder stats", err)
		return
	}
	writeJSON(w, http.StatusOK, view.Count(list))
}

// CreateReminder handles POST /api/reminders.
//
//	@Summary		Create a reminder
//	@Tags			reminders
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateReminderRequest	true	"Reminder to create"
//	@Success		201		{object}	CommandResult
//	@Failure		400		{object}	CommandResult
//	@Failure		500		{object}	CommandResult
//	@Security		BearerAuth
//	@Router			/reminders [post]
func (h *Handler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req CreateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	created, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeCommandError(w, "create reminder", err)
		return
	}
	writeJSON(w, http.StatusCreated, reminderservice.Result{Success: true, Reminder: &created})
}

// DeleteReminder handles DELETE /api/reminders/{id}.
//
//	@Summary		Delete a reminder and its wake-up
//	@Description	Idempotent: unknown ids succeed.
//	@Tags			reminders
//	@Produce		json
//	@Param			id	path		string	true	"Reminder id"
//	@Success		200	{object}	CommandResult
//	@Security		BearerAuth
//	@Router			/reminders/{id} [delete]
func (h *Handler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeCommandError(w, "delete reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, reminderservice.Result{Success: true})
}

// ToggleDone handles POST /api/reminders/{id}/toggle.
//
//	@Summary		Flip the done flag
//	@Tags			reminders
//	@Produce		json
//	@Param			id	path		string	true	"Reminder id"
//	@Success		200	{object}	CommandResult
//	@Security		BearerAuth
//	@Router			/reminders/{id}/toggle [post]
func (h *Handler) ToggleDone(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ToggleDone(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeCommandError(w, "toggle reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, reminderservice.Result{Success: true})
}

// Command handles POST /api/commands.
//
//	@Summary		Execute a protocol command
//	@Description	CREATE_REMINDER, DELETE_REMINDER, TOGGLE_DONE or GET_REMINDERS.
//	@Tags			commands
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CommandRequest	true	"Command"
//	@Success		200		{object}	CommandResult
//	@Failure		400		{object}	CommandResult
//	@Failure		500		{object}	CommandResult
//	@Security		BearerAuth
//	@Router			/commands [post]
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var cmd CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	out, err := h.svc.Dispatch(r.Context(), cmd)
	if err != nil {
		writeCommandError(w, "command "+cmd.Type, err)
		return
	}
	if list, ok := out.([]models.Reminder); ok && list == nil {
		out = []models.Reminder{}
	}
	writeJSON(w, http.StatusOK, out)
}

// Reconcile handles POST /api/reconcile.
//
//	@Summary		Re-run reconciliation
//	@Tags			maintenance
//	@Produce		json
//	@Param			prune	query		bool	false	"Clear orphan wake-ups"
//	@Success		200		{object}	ReconcileResponse
//	@Security		BearerAuth
//	@Router			/reconcile [post]
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	prune, _ := strconv.ParseBool(r.URL.Query().Get("prune"))
	rep, err := h.svc.Reconcile(r.Context(), reconcile.Options{PruneOrphans: prune})
	if err != nil {
		writeCommandError(w, "reconcile", err)
		return
	}
	writeJSON(w, http.StatusOK, ReconcileResponse{
		Success:   true,
		Scanned:   rep.Scanned,
		Scheduled: rep.Scheduled,
		Present:   rep.Present,
		Skipped:   rep.Skipped,
		Stale:     rep.Stale,
		Pruned:    rep.Pruned,
		Failed:    rep.Failed,
	})
}
