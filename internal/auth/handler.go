package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eventdesk/eventdesk/internal/confirm"
	"github.com/eventdesk/eventdesk/internal/i18n"
	"github.com/eventdesk/eventdesk/internal/platform/httpx"
	"github.com/eventdesk/eventdesk/internal/shared"
	"github.com/eventdesk/eventdesk/internal/view"
)

// ActionLogout is the confirmation action tag that signs the session out.
const ActionLogout = "session.logout"

// WorkspaceDetacher releases per-session action state on sign-out.
type WorkspaceDetacher interface {
	Detach(sessionID string)
}

// HandlerConfig groups Handler dependencies.
type HandlerConfig struct {
	Logger     *slog.Logger
	Service    *Service
	Templates  *view.Engine
	Sessions   *shared.SessionManager
	CSRF       *shared.CSRFManager
	Catalog    *i18n.Catalog
	Tokens     *TokenIssuer
	Workspaces WorkspaceDetacher
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	catalog        *i18n.Catalog
	tokens         *TokenIssuer
	workspaces     WorkspaceDetacher
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        cfg.Service,
		templates:      cfg.Templates,
		sessionManager: cfg.Sessions,
		csrfManager:    cfg.CSRF,
		catalog:        cfg.Catalog,
		tokens:         cfg.Tokens,
		workspaces:     cfg.Workspaces,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/token", h.issueToken)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess.Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginPageData{Form: loginForm{}})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				errs[fieldErr.Field()] = fieldErr.Error()
			}
		}
	}
	if len(errs) > 0 {
		h.renderLogin(w, r, http.StatusBadRequest, loginPageData{Form: form, Errors: errs})
		return
	}

	user, err := h.service.Authenticate(r.Context(), Credentials{Email: form.Email, Password: form.Password})
	if err != nil {
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Error("authenticate", slog.Any("error", err))
		}
		errs["general"] = "auth.invalid"
		h.renderLogin(w, r, http.StatusBadRequest, loginPageData{Form: form, Errors: errs})
		return
	}
	if err := sess.SignIn(user.Identity()); err != nil {
		if !errors.Is(err, shared.ErrAlreadyAuthenticated) {
			h.logger.Error("sign in", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		h.logger.Warn("login over existing identity ignored", slog.String("session_id", sess.ID))
	}
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "auth.welcome"})

	client := Client{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
	if err := h.service.RecordLogin(r.Context(), sess.ID, user, h.sessionManager.TTL(), client); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SignOut(r.Context()); err != nil {
		h.logger.Warn("sign out", slog.Any("error", err))
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	id := sess.Identity()
	if id == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	if h.tokens == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "token issuing disabled")
		return
	}
	token, expiresAt, err := h.tokens.Issue(sess.ID, *id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tokenResponse{Token: token, ExpiresAt: expiresAt})
}

// SignOut ends the session carried by ctx. It backs both the logout form and
// the confirmed logout action.
func (h *Handler) SignOut(ctx context.Context) error {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return nil
	}
	var err error
	if h.service != nil {
		err = h.service.EndSession(ctx, sess.ID)
	}
	if h.workspaces != nil {
		h.workspaces.Detach(sess.ID)
	}
	h.sessionManager.Destroy(sess)
	return err
}

// LogoutAction adapts SignOut to the confirmation registry.
func (h *Handler) LogoutAction(ctx context.Context, _ confirm.Action) error {
	return h.SignOut(ctx)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	lang := ""
	if sess != nil {
		lang = sess.Get(shared.SessionKeyLanguage)
	}
	viewData := view.TemplateData{
		Title:       "auth.title",
		CSRFToken:   csrfToken,
		CurrentPath: r.URL.Path,
		Translator:  h.catalog.For(h.catalog.Resolve(lang, r.Header.Get("Accept-Language"))),
		Data:        data,
	}
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
		if status == http.StatusOK {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}
