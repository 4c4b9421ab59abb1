package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/report"
)

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int                  `json:"unread"`
}

type syncResponse struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int                  `json:"unread"`
	Inserted      int                  `json:"inserted"`
	Updated       int                  `json:"updated"`
	Delivered     int                  `json:"delivered"`
	RemoteError   string               `json:"remote_error,omitempty"`
}

type ledgerRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func tenant(r *http.Request) string {
	return chi.URLParam(r, "restaurantID")
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := -1
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, model.NewError(model.CodeInvalidRecord, "api.list_notifications", "invalid limit %q", v))
			return
		}
		limit = n
	}

	list, unread, err := s.notify.Preview(r.Context(), tenant(r), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, notificationsResponse{Notifications: list, Unread: unread})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.notify.Sync(r.Context(), tenant(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := syncResponse{
		Notifications: res.Notifications,
		Unread:        res.Unread,
		Inserted:      res.Inserted,
		Updated:       res.Updated,
		Delivered:     res.Delivered,
	}
	if res.RemoteErr != nil {
		resp.RemoteError = res.RemoteErr.Error()
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	changed, err := s.notify.MarkRead(r.Context(), tenant(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]bool{"changed": changed})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	ids, err := s.notify.MarkAllRead(r.Context(), tenant(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, r, http.StatusOK, map[string][]string{"marked": ids})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.History(r.Context(), tenant(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *Server) decodeLedgerRequest(w http.ResponseWriter, r *http.Request, op string) (ledgerRequest, bool) {
	var req ledgerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		s.writeError(w, r, model.WrapError(model.CodeInvalidRecord, op, fmt.Errorf("decode body: %w", err)))
		return req, false
	}
	return req, true
}

func (s *Server) handleAddCredit(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeLedgerRequest(w, r, "api.add_credit")
	if !ok {
		return
	}
	tx, err := s.ledger.AddCredit(r.Context(), tenant(r), chi.URLParam(r, "id"), req.Amount, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, tx)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeLedgerRequest(w, r, "api.record_payment")
	if !ok {
		return
	}
	tx, err := s.ledger.RecordPayment(r.Context(), tenant(r), chi.URLParam(r, "id"), req.Amount, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, tx)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	res, err := s.ledger.DeleteCustomer(r.Context(), tenant(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.notify.Logout(r.Context(), tenant(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"cleared": tenant(r)})
}

// handleReport streams an export. The format defaults to JSON.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, err := report.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := report.FormatJSON
	if v := q.Get("format"); v != "" {
		if format, err = report.ParseFormat(v); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	rng := report.Range{From: q.Get("from"), To: q.Get("to")}

	sink := report.SinkFunc(func(_ context.Context, content []byte, filename, mimeType string) error {
		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		_, err := w.Write(content)
		return err
	})
	if _, err := s.reports.Export(r.Context(), tenant(r), kind, rng, format, sink); err != nil {
		s.writeError(w, r, err)
	}
}
