package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/RanitManik/lucide-note/internal/authpw"
	"github.com/RanitManik/lucide-note/internal/email"
	"github.com/RanitManik/lucide-note/internal/rbac"
	"github.com/RanitManik/lucide-note/internal/store"
)

// SetupOrganization creates a tenant for a user who has none and makes them
// its admin.
func (s *Service) SetupOrganization(ctx context.Context, session Session, input OrganizationInput) (map[string]any, error) {
	input.Slug = strings.ToLower(strings.TrimSpace(input.Slug))
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}
	if session.TenantID != "" {
		return nil, errAlreadyInOrganization
	}

	tenant, _, err := s.store.SetupOrganization(ctx, session.UserID, input.Slug, input.Name)
	if errors.Is(err, store.ErrConflict) {
		return nil, domainError(http.StatusConflict, "SLUG_TAKEN", "Organization slug is already taken", map[string]any{"slug": input.Slug})
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errAlreadyInOrganization
	}
	if err != nil {
		return nil, err
	}
	return s.tenantSummary(ctx, tenant)
}

// TenantSummary describes the caller's tenant and its plan usage.
func (s *Service) TenantSummary(ctx context.Context, session Session) (map[string]any, error) {
	if err := requireTenant(session); err != nil {
		return nil, err
	}
	tenant, err := s.store.GetTenantByID(ctx, session.TenantID)
	if err != nil {
		return nil, err
	}
	return s.tenantSummary(ctx, tenant)
}

func (s *Service) tenantSummary(ctx context.Context, tenant store.Tenant) (map[string]any, error) {
	count, err := s.store.CountNotes(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	var limit any
	if tenant.Plan != store.PlanPro {
		limit = s.cfg.FreeNoteLimit
	}
	return map[string]any{
		"id":        tenant.ID,
		"slug":      tenant.Slug,
		"name":      tenant.Name,
		"plan":      strings.ToUpper(tenant.Plan),
		"noteCount": count,
		"limit":     limit,
	}, nil
}

// UpgradeTenant moves the caller's tenant to the pro plan. Admins can only
// upgrade their own tenant.
func (s *Service) UpgradeTenant(ctx context.Context, session Session, slug string) (map[string]any, error) {
	if err := requireTenant(session); err != nil {
		return nil, err
	}
	if !s.Can(session.Role, rbac.ActionUpgrade) {
		return nil, forbidden("Only admins can upgrade the plan")
	}
	tenant, err := s.store.GetTenantByID(ctx, session.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Slug != slug {
		return nil, forbidden("Forbidden")
	}
	if tenant.Plan != store.PlanPro {
		tenant, err = s.store.UpdateTenantPlan(ctx, tenant.ID, store.PlanPro)
		if err != nil {
			return nil, err
		}
	}
	return s.tenantSummary(ctx, tenant)
}

// InviteUser creates a user inside the caller's tenant. When no password is
// given one is generated and mailed; without SMTP it is returned in the
// response instead.
func (s *Service) InviteUser(ctx context.Context, session Session, input InviteInput) (map[string]any, error) {
	if err := requireTenant(session); err != nil {
		return nil, err
	}
	if !s.Can(session.Role, rbac.ActionInvite) {
		return nil, forbidden("Only admins can invite users")
	}
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	result, err := s.passwords.Invite(ctx, authpw.InviteRequest{
		TenantID:  session.TenantID,
		Email:     input.Email,
		Role:      rbac.Normalize(input.Role),
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	})
	if err != nil {
		return nil, passwordError(err)
	}

	payload := map[string]any{
		"user": map[string]any{
			"id":        result.User.ID,
			"email":     result.User.Email,
			"firstName": result.User.FirstName,
			"lastName":  result.User.LastName,
			"role":      result.User.Role,
		},
		"emailSent": false,
	}
	if result.TemporaryPassword == "" {
		return payload, nil
	}

	if s.mailer.IsConfigured() {
		tenant, err := s.store.GetTenantByID(ctx, session.TenantID)
		if err != nil {
			return nil, err
		}
		err = s.mailer.SendInviteEmail(email.InviteData{
			InviterName:       session.UserName,
			TenantName:        tenant.Name,
			Role:              result.User.Role,
			LoginURL:          s.cfg.PublicURL + "/login",
			Email:             result.User.Email,
			TemporaryPassword: result.TemporaryPassword,
		})
		if err == nil {
			payload["emailSent"] = true
			return payload, nil
		}
		log.Printf("invite: send email to %s: %v", result.User.Email, err)
	}
	payload["temporaryPassword"] = result.TemporaryPassword
	return payload, nil
}
