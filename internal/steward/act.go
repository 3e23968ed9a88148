package steward

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrRejected is returned when the session refuses a step (HTTP 409).
var ErrRejected = errors.New("step rejected by the session")

// Actor executes steps via the admin API.
type Actor struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL with admin auth.
func NewActor(baseURL, adminKey string) *Actor {
	return &Actor{
		BaseURL:  baseURL,
		AdminKey: adminKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Act sends one step to its admin endpoint.
func (a *Actor) Act(step Step) error {
	var path string
	var payload any
	switch step.Action {
	case ActionSettler:
		path = "/api/v1/settler"
	case ActionCapital:
		path = "/api/v1/capital"
		payload = map[string]any{"unit_id": step.UnitID}
	case ActionMove:
		path = "/api/v1/move"
		payload = map[string]any{"unit_id": step.UnitID, "col": step.Target.Col, "row": step.Target.Row}
	case ActionBuild:
		path = "/api/v1/build"
		payload = map[string]any{"city_id": step.CityID, "building": step.Building}
	case ActionTurn:
		path = "/api/v1/turn"
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", step.Action, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(http.MethodPost, a.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.AdminKey)

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s: %s: %w", step.Action, bytes.TrimSpace(respBody), ErrRejected)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s failed (%d): %s", step.Action, resp.StatusCode, string(respBody))
	}
	return nil
}

// Steward ties the observe, decide and act phases together.
type Steward struct {
	Observer *Observer
	Actor    *Actor
	Memory   *Memory
}

// New creates a Steward for the API at baseURL.
func New(baseURL, adminKey string) *Steward {
	return &Steward{
		Observer: NewObserver(baseURL),
		Actor:    NewActor(baseURL, adminKey),
		Memory:   NewMemory(),
	}
}

// Cycle runs one observe, decide, act pass. Rejected steps are recorded
// and skipped; any other failure aborts the cycle.
func (s *Steward) Cycle() (CycleRecord, error) {
	snap, err := s.Observer.Observe()
	if err != nil {
		return CycleRecord{}, fmt.Errorf("observe: %w", err)
	}

	h := Triage(snap)
	slog.Info("triage",
		"level", h.CrisisLevel,
		"stress", h.EdenStress,
		"stress_per_turn", h.StressPerTurn,
		"idle_settlers", h.IdleSettlers,
	)

	plan := Decide(snap, h, s.Memory)
	rec := CycleRecord{Turn: snap.Status.Turn, CrisisLevel: h.CrisisLevel, Steps: plan}

	for _, step := range plan {
		err := s.Actor.Act(step)
		switch {
		case err == nil:
			slog.Info("step executed", "action", step.Action, "rationale", step.Rationale)
		case errors.Is(err, ErrRejected):
			rec.Failures++
			slog.Warn("step rejected", "action", step.Action, "error", err)
			if step.Action == ActionCapital {
				for _, u := range snap.Units {
					if u.ID == step.UnitID {
						s.Memory.Reject(u.Position)
					}
				}
			}
		default:
			s.Memory.Record(rec)
			return rec, fmt.Errorf("act: %w", err)
		}
	}

	s.Memory.Record(rec)
	return rec, nil
}
