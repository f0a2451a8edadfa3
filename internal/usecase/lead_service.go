package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/identity"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/observer"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/validator"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/utils"
)

// CreateLead validates in and stores it as a new lead owned by actor.
func (s *LeadService) CreateLead(ctx context.Context, actor identity.Identity, in model.LeadInput) (*model.Lead, error) {
	log := logger.FromContext(ctx)

	result := validator.ValidateLead(in)
	if !result.OK() {
		countValidationFailures("form", result.Errors)
		log.Debug("Rejected lead input", zap.Strings("errors", result.Errors.Strings()))
		return nil, result.Err()
	}

	lead, err := s.leadRepo.Create(ctx, result.Value, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	observer.IncLeadMutation("created", 1)
	log.Info("Lead created", zap.String("lead_id", lead.ID))
	s.publish(ctx, model.V1LeadsCreated, actor, []string{lead.ID}, nil)
	return lead, nil
}

// UpdateLead applies a partial update on behalf of actor. Only the owner or an admin may
// update; a stale updatedAt token yields apperrors.ErrConflict.
func (s *LeadService) UpdateLead(ctx context.Context, actor identity.Identity, in model.LeadUpdateInput) (*model.Lead, error) {
	log := logger.FromContext(ctx)

	id, err := parseLeadID(in.ID)
	if err != nil {
		return nil, err
	}
	in.ID = id

	current, err := s.leadRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanMutate(current.OwnerID) {
		return nil, fmt.Errorf("%w: %s may not edit lead %s", apperrors.ErrForbidden, actor.UserID, id)
	}

	result := validator.ValidateLeadUpdate(in, current)
	if !result.OK() {
		countValidationFailures("form", result.Errors)
		return nil, result.Err()
	}
	update := result.Value

	lead, diff, err := s.leadRepo.Update(ctx, id, update.Patch, actor.UserID, update.ExpectedUpdatedAt, validator.CheckLeadPatch)
	if err != nil {
		if apperrors.IsConflictError(err) {
			log.Info("Lead update rejected: stale token", zap.String("lead_id", id))
		}
		if apperrors.IsValidationError(err) {
			log.Info("Lead update rejected by the stored record", zap.String("lead_id", id), zap.Error(err))
		}
		return nil, err
	}

	observer.IncLeadMutation("updated", 1)
	log.Info("Lead updated", zap.String("lead_id", id), zap.Int("changed_fields", len(diff)))
	if !diff.Empty() {
		s.publish(ctx, model.V1LeadsUpdated, actor, []string{id}, diff)
	}
	return lead, nil
}

// GetLead returns one lead.
func (s *LeadService) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	id, err := parseLeadID(id)
	if err != nil {
		return nil, err
	}
	return s.leadRepo.FindByID(ctx, id)
}

// DeleteLead removes a lead and its history. Only the owner or an admin may delete.
func (s *LeadService) DeleteLead(ctx context.Context, actor identity.Identity, id string) error {
	id, err := parseLeadID(id)
	if err != nil {
		return err
	}

	current, err := s.leadRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanMutate(current.OwnerID) {
		return fmt.Errorf("%w: %s may not delete lead %s", apperrors.ErrForbidden, actor.UserID, id)
	}

	if err := s.leadRepo.Delete(ctx, id); err != nil {
		return err
	}

	observer.IncLeadMutation("deleted", 1)
	logger.FromContext(ctx).Info("Lead deleted", zap.String("lead_id", id))
	s.publish(ctx, model.V1LeadsDeleted, actor, []string{id}, nil)
	return nil
}

// ListLeads normalizes params and returns the requested page.
func (s *LeadService) ListLeads(ctx context.Context, params model.ListParams) (*model.LeadPage, error) {
	filter, err := validator.NormalizeFilter(params)
	if err != nil {
		return nil, err
	}

	leads, total, err := s.leadRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return model.NewLeadPage(leads, total, filter), nil
}

// GetHistory returns the most recent history entries of a lead, newest first.
// limit is capped at the configured history size; zero or less means the cap.
func (s *LeadService) GetHistory(ctx context.Context, leadID string, limit int) ([]model.LeadHistory, error) {
	id, err := parseLeadID(leadID)
	if err != nil {
		return nil, err
	}
	if _, err := s.leadRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > s.opts.HistoryLimit {
		limit = s.opts.HistoryLimit
	}
	return s.historyRepo.FindByLead(ctx, id, limit)
}

// GetStats counts leads per status. Every status is present, with zero when unused.
// An empty ownerID counts all leads.
func (s *LeadService) GetStats(ctx context.Context, ownerID string) (*model.LeadStats, error) {
	counts, err := s.leadRepo.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	stats := &model.LeadStats{ByStatus: make(map[string]int64, len(model.Statuses.Values()))}
	for _, status := range model.Statuses.Values() {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}
	return stats, nil
}

// publish announces a committed mutation. Failures never reach the caller.
func (s *LeadService) publish(ctx context.Context, eventType model.EventType, actor identity.Identity, ids []string, changes model.FieldDiff) {
	s.publisher.Publish(ctx, model.LeadEvent{
		Type:       eventType,
		LeadIDs:    ids,
		ActorID:    actor.UserID,
		Changes:    changes,
		OccurredAt: utils.Now(),
	})
}

func countValidationFailures(source string, errs apperrors.FieldErrors) {
	for _, e := range errs {
		observer.IncValidationFailure(source, e.Field)
	}
}
