package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"nurseconnect-registration/internal/config"
	"nurseconnect-registration/internal/models"
	"nurseconnect-registration/internal/registration"
	"nurseconnect-registration/internal/util"
)

var stepPaths = map[registration.Step]string{
	registration.StepDetails:       "/",
	registration.StepOptInConfirm:  "/confirm_optin",
	registration.StepClinicConfirm: "/confirm_clinic",
	registration.StepSuccess:       "/success",
	registration.StepRejected:      "/reject_optin",
}

const msgSomethingWentWrong = "Something went wrong. Please try again."

// WizardHandler serves the registration pages. Every request loads the
// session from its cookie and saves it before responding.
type WizardHandler struct {
	wizard       *registration.Wizard
	store        registration.Store
	renderer     *Renderer
	session      config.SessionConfig
	secureCookie bool
	baseURL      string
	now          func() time.Time
}

func NewWizardHandler(wizard *registration.Wizard, store registration.Store, renderer *Renderer, cfg *config.Config) *WizardHandler {
	return &WizardHandler{
		wizard:       wizard,
		store:        store,
		renderer:     renderer,
		session:      cfg.Session,
		secureCookie: cfg.IsProduction(),
		baseURL:      cfg.Server.BaseURL,
		now:          time.Now,
	}
}

func (h *WizardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Details)
	r.Post("/", h.SubmitDetails)
	r.Get("/confirm_optin", h.ConfirmOptIn)
	r.Post("/confirm_optin", h.SubmitOptIn)
	r.Get("/reject_optin", h.RejectOptIn)
	r.Get("/confirm_clinic", h.ConfirmClinic)
	r.Post("/confirm_clinic", h.SubmitClinic)
	r.Get("/success", h.Success)
	r.Get("/terms_and_conditions/", h.Terms)
	r.Get("/{code}", h.Details)
	r.Post("/{code}", h.SubmitDetails)
}

func (h *WizardHandler) Details(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	h.wizard.Entry(r.Context(), sess, chi.URLParam(r, "code"))

	form := map[string]interface{}{}
	if d := sess.RegistrationDetails; d != nil {
		form["msisdn"] = d.MSISDN
		form["clinic_code"] = d.ClinicCode
		form["consent"] = d.Consent
		form["terms_and_conditions"] = d.TermsAccepted
	}
	errs := flashErrors(sess.PopMessages())

	if !h.save(w, r, sess) {
		return
	}
	h.renderer.Render(w, http.StatusOK, "registration_details", map[string]interface{}{
		"form":   form,
		"errors": errs,
	})
}

func (h *WizardHandler) SubmitDetails(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, http.StatusBadRequest)
		return
	}
	h.wizard.Entry(r.Context(), sess, chi.URLParam(r, "code"))

	in := registration.DetailsInput{
		MSISDN:        r.PostForm.Get("msisdn"),
		ClinicCode:    r.PostForm.Get("clinic_code"),
		Consent:       r.PostForm.Get("consent") != "",
		TermsAccepted: r.PostForm.Get("terms_and_conditions") != "",
	}
	step, errs := h.wizard.SubmitDetails(r.Context(), sess, in)
	if !h.save(w, r, sess) {
		return
	}

	if !errs.Empty() {
		h.renderer.Render(w, http.StatusOK, "registration_details", map[string]interface{}{
			"form": map[string]interface{}{
				"msisdn":               in.MSISDN,
				"clinic_code":          in.ClinicCode,
				"consent":              in.Consent,
				"terms_and_conditions": in.TermsAccepted,
			},
			"errors": toBindings(errs),
		})
		return
	}
	h.redirect(w, r, step)
}

func (h *WizardHandler) ConfirmOptIn(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadGuarded(w, r, registration.StepOptInConfirm)
	if !ok {
		return
	}
	h.renderer.Render(w, http.StatusOK, "confirm_optin", map[string]interface{}{
		"msisdn": sess.MSISDN(),
	})
}

func (h *WizardHandler) SubmitOptIn(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadGuarded(w, r, registration.StepOptInConfirm)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, http.StatusBadRequest)
		return
	}
	step := h.wizard.ConfirmOptIn(r.Context(), sess, r.PostForm.Has("yes"))
	if !h.save(w, r, sess) {
		return
	}
	h.redirect(w, r, step)
}

func (h *WizardHandler) RejectOptIn(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "reject_optin", nil)
}

func (h *WizardHandler) ConfirmClinic(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadGuarded(w, r, registration.StepClinicConfirm)
	if !ok {
		return
	}
	errs := flashErrors(sess.PopMessages())
	if !h.save(w, r, sess) {
		return
	}
	h.renderer.Render(w, http.StatusOK, "confirm_clinic", map[string]interface{}{
		"clinic_name": sess.ClinicName,
		"errors":      errs,
	})
}

func (h *WizardHandler) SubmitClinic(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadGuarded(w, r, registration.StepClinicConfirm)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, http.StatusBadRequest)
		return
	}
	// The queued message is shown on the next render; the error is logged
	// by the wizard.
	step, _ := h.wizard.ConfirmClinic(r.Context(), sess, r.PostForm.Has("yes"), h.now())
	if !h.save(w, r, sess) {
		return
	}
	h.redirect(w, r, step)
}

func (h *WizardHandler) Success(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadGuarded(w, r, registration.StepSuccess)
	if !ok {
		return
	}
	out, err := h.wizard.Complete(r.Context(), sess, h.baseURLFor(r))
	if err != nil {
		util.Error("Failed to complete registration", zap.String("session_id", sess.ID), zap.Error(err))
		h.renderError(w, http.StatusInternalServerError)
		return
	}
	if !h.save(w, r, sess) {
		return
	}
	h.renderer.Render(w, http.StatusOK, "success", map[string]interface{}{
		"channel":       out.Channel,
		"referral_link": out.ReferralLink,
	})
}

func (h *WizardHandler) Terms(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "terms_and_conditions", nil)
}

// load returns the request's session, or a new one when the request has no
// usable cookie. It writes an error page and returns false on store failure.
func (h *WizardHandler) load(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	id := ""
	if c, err := r.Cookie(h.session.CookieName); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			id = c.Value
		}
	}
	if id == "" {
		return models.NewSession(uuid.NewString()), true
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	sess, err := h.store.Load(ctx, id)
	if err != nil {
		util.Error("Failed to load session", zap.Error(err))
		h.renderError(w, http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

func (h *WizardHandler) loadGuarded(w http.ResponseWriter, r *http.Request, step registration.Step) (*models.Session, bool) {
	sess, ok := h.load(w, r)
	if !ok {
		return nil, false
	}
	if target, allowed := registration.Guard(step, sess); !allowed {
		h.redirect(w, r, target)
		return nil, false
	}
	return sess, true
}

// save persists sess and refreshes the cookie. Empty sessions are deleted
// and their cookie expired.
func (h *WizardHandler) save(w http.ResponseWriter, r *http.Request, sess *models.Session) bool {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Save(ctx, sess); err != nil {
		util.Error("Failed to save session", zap.String("session_id", sess.ID), zap.Error(err))
		h.renderError(w, http.StatusInternalServerError)
		return false
	}

	cookie := &http.Cookie{
		Name:     h.session.CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.session.TTL / time.Second),
	}
	if sess.IsEmpty() {
		cookie.Value = ""
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
	return true
}

func (h *WizardHandler) redirect(w http.ResponseWriter, r *http.Request, step registration.Step) {
	http.Redirect(w, r, stepPaths[step], http.StatusFound)
}

func (h *WizardHandler) renderError(w http.ResponseWriter, status int) {
	h.renderer.Render(w, status, "error", map[string]interface{}{"message": msgSomethingWentWrong})
}

func (h *WizardHandler) baseURLFor(r *http.Request) string {
	return absoluteBaseURL(h.baseURL, r)
}

// absoluteBaseURL returns configured, or the scheme and host the request was
// made to when nothing is configured.
func absoluteBaseURL(configured string, r *http.Request) string {
	if configured != "" {
		return configured
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// flashErrors turns queued messages into the errors binding of a page.
func flashErrors(msgs []models.FlashMessage) map[string]interface{} {
	errs := registration.FieldErrors{}
	for _, m := range msgs {
		errs.Add(m.Field, m.Text)
	}
	return toBindings(errs)
}

func toBindings(errs registration.FieldErrors) map[string]interface{} {
	out := make(map[string]interface{}, len(errs))
	for field, msgs := range errs {
		list := make([]interface{}, len(msgs))
		for i, m := range msgs {
			list[i] = m
		}
		out[field] = list
	}
	return out
}
