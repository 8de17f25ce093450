package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/keystone-id/keystone/internal/identity"
	"github.com/keystone-id/keystone/internal/platform/httpx"
	"github.com/keystone-id/keystone/internal/rbac"
	"github.com/keystone-id/keystone/internal/roles"
	"github.com/keystone-id/keystone/internal/shared"
)

// PermUserManage gates user administration endpoints.
const PermUserManage = "user:manage"

// RoleLister exposes the roles assigned to a user.
type RoleLister interface {
	ForUser(ctx context.Context, userID uuid.UUID) ([]roles.Role, error)
}

// Assigner mutates user/role assignments.
type Assigner interface {
	Assign(ctx context.Context, userID, roleID uuid.UUID) error
	Unassign(ctx context.Context, userID, roleID uuid.UUID) error
}

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	roles     RoleLister
	assigner  Assigner
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, roleLister RoleLister, assigner Assigner, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		roles:     roleLister,
		assigner:  assigner,
		rbac:      rbac,
		validator: validator.New(),
	}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.me)
	r.Patch("/me", h.updateMe)
	r.Get("/{userID}", h.getUser)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(PermUserManage))
		r.Get("/", h.listUsers)
		r.Post("/", h.createUser)
		r.Patch("/{userID}", h.updateUser)
		r.Get("/{userID}/roles", h.listUserRoles)
		r.Post("/{userID}/roles/{roleID}", h.assignRole)
		r.Delete("/{userID}/roles/{roleID}", h.unassignRole)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireSuperuser())
		r.Delete("/{userID}", h.deleteUser)
	})
}

type roleSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type userResponse struct {
	ID          uuid.UUID     `json:"id"`
	Username    string        `json:"username"`
	Email       string        `json:"email"`
	IsActive    bool          `json:"is_active"`
	IsSuperuser bool          `json:"is_superuser"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Roles       []roleSummary `json:"roles"`
}

// UserResponse builds the wire shape for a user including assigned roles.
// The password hash is never part of it.
func UserResponse(user User, assigned []roles.Role) any {
	out := userResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
		Roles:       make([]roleSummary, 0, len(assigned)),
	}
	for _, role := range assigned {
		perms := role.Permissions
		if perms == nil {
			perms = []string{}
		}
		out.Roles = append(out.Roles, roleSummary{
			ID:          role.ID,
			Name:        role.Name,
			Description: role.Description,
			Permissions: perms,
			CreatedAt:   role.CreatedAt,
			UpdatedAt:   role.UpdatedAt,
		})
	}
	return out
}

func (h *Handler) respondUser(w http.ResponseWriter, r *http.Request, status int, user User) {
	assigned, err := h.roles.ForUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("load user roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, status, UserResponse(user, assigned))
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	principal := identity.PrincipalFromContext(r.Context())
	user, err := h.service.Get(r.Context(), principal.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondUser(w, r, http.StatusOK, user)
}

type updateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3"`
	Email    *string `json:"email" validate:"omitempty,email"`
	IsActive *bool   `json:"is_active"`
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	principal := identity.PrincipalFromContext(r.Context())
	h.applyUpdate(w, r, principal.UserID)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), shared.PaginationFromRequest(r))
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]any, len(list))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(8)
	for i, user := range list {
		i, user := i, user
		g.Go(func() error {
			assigned, err := h.roles.ForUser(ctx, user.ID)
			if err != nil {
				return err
			}
			out[i] = UserResponse(user, assigned)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.logger.Error("load user roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createUserRequest struct {
	Username        string `json:"username" validate:"required,min=3"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	IsActive        *bool  `json:"is_active"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", "")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	user, err := h.service.Create(r.Context(), CreateInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsActive: active,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondUser(w, r, http.StatusCreated, user)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	principal := identity.PrincipalFromContext(r.Context())
	if err := rbac.AllowSelfOrPermission(principal, id, PermUserManage); err != nil {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondUser(w, r, http.StatusOK, user)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	h.applyUpdate(w, r, id)
}

func (h *Handler) applyUpdate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", "")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user, err := h.service.Update(r.Context(), id, UpdateInput{
		Username: req.Username,
		Email:    req.Email,
		IsActive: req.IsActive,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondUser(w, r, http.StatusOK, user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listUserRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Get(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	assigned, err := h.roles.ForUser(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleSummary, 0, len(assigned))
	for _, role := range assigned {
		perms := role.Permissions
		if perms == nil {
			perms = []string{}
		}
		out = append(out, roleSummary{
			ID:          role.ID,
			Name:        role.Name,
			Description: role.Description,
			Permissions: perms,
			CreatedAt:   role.CreatedAt,
			UpdatedAt:   role.UpdatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, roleID, ok := h.pairIDs(w, r)
	if !ok {
		return
	}
	if err := h.assigner.Assign(r.Context(), userID, roleID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "user or role does not exist")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unassignRole(w http.ResponseWriter, r *http.Request) {
	userID, roleID, ok := h.pairIDs(w, r)
	if !ok {
		return
	}
	if err := h.assigner.Unassign(r.Context(), userID, roleID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "user or role does not exist, or role is not assigned")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) pairIDs(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := h.userID(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	roleID, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid role id")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, roleID, true
}
