package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/logging"
)

type handlerFunc func(ctx context.Context, p Principal, params json.RawMessage) (any, error)

type route struct {
	// capability is required before the handler runs; empty means any
	// authenticated caller.
	capability string
	handle     handlerFunc
}

// Router dispatches requests by operation name. The table is fixed at
// construction.
type Router struct {
	routes map[string]route
	logger logging.Logger
}

func NewRouter(timer Timer, stats Stats, payroll Payroll, logger logging.Logger) *Router {
	h := &handlers{timer: timer, stats: stats, payroll: payroll}

	return &Router{
		logger: logger.With("module", "api"),
		routes: map[string]route{
			"start_timer":      {common.CapTrackTime, h.startTimer},
			"pause_timer":      {common.CapTrackTime, h.pauseTimer},
			"resume_timer":     {common.CapTrackTime, h.resumeTimer},
			"stop_timer":       {common.CapTrackTime, h.stopTimer},
			"update_activity":  {common.CapTrackTime, h.updateActivity},
			"get_active_timer": {common.CapTrackTime, h.activeTimer},

			"get_user_stats":           {"", h.userStats},
			"get_weekly_breakdown":     {"", h.weeklyBreakdown},
			"get_project_distribution": {"", h.projectDistribution},
			"get_team_stats":           {common.CapManageTeam, h.teamStats},
			"get_timesheets":           {common.CapViewTimesheets, h.timesheets},
			"get_projects":             {"", h.projects},

			"generate_payroll":    {common.CapManagePayroll, h.generatePayroll},
			"process_payroll":     {common.CapManagePayroll, h.processPayroll},
			"get_payroll":         {common.CapManagePayroll, h.listPayroll},
			"get_payroll_summary": {common.CapManagePayroll, h.payrollSummary},

			"update_user_rate": {common.CapManageTeam, h.updateUserRate},
		},
	}
}

// Operations lists the registered operation names, sorted.
func (r *Router) Operations() []string {
	ops := make([]string, 0, len(r.routes))
	for name := range r.routes {
		ops = append(ops, name)
	}
	sort.Strings(ops)
	return ops
}

// Handle runs one request. It never returns a Go error: failures are
// encoded in the Response.
func (r *Router) Handle(ctx context.Context, req Request) Response {
	logger := r.logger.With("request_id", req.RequestID, "operation", req.Operation, "user_id", req.Principal.UserID)

	data, err := r.dispatch(ctx, req)
	if err != nil {
		body := NewErrorBody(err)
		if body.Kind == KindInternal {
			logger.Error(ctx, "operation failed", "error", err)
		} else {
			logger.Debug(ctx, "operation rejected", "kind", body.Kind, "error", err)
		}
		return Response{OK: false, Error: body}
	}

	logger.Debug(ctx, "operation completed")
	return Response{OK: true, Data: data}
}

func (r *Router) dispatch(ctx context.Context, req Request) (any, error) {
	rt, ok := r.routes[req.Operation]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, req.Operation)
	}
	if req.Principal.UserID <= 0 {
		return nil, common.ErrorUnauthorized
	}
	if rt.capability != "" && !req.Principal.Can(rt.capability) {
		return nil, fmt.Errorf("%w: %s requires %s", common.ErrPermissionDenied, req.Operation, rt.capability)
	}
	return rt.handle(ctx, req.Principal, req.Params)
}

// decode unmarshals params into dst. Absent params decode as {}.
func decode(params json.RawMessage, dst any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return common.Validationf("parameter %q must be %s", typeErr.Field, typeErr.Type)
		}
		return common.Validationf("malformed params: %v", err)
	}
	return nil
}
