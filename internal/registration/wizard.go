// Package registration drives the multi-page registration wizard. Pages
// call the Wizard with the current session; the Wizard mutates the session
// and returns the step to show next.
package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nurseconnect-registration/internal/alerting"
	"nurseconnect-registration/internal/analytics"
	"nurseconnect-registration/internal/contacts"
	"nurseconnect-registration/internal/facility"
	"nurseconnect-registration/internal/metrics"
	"nurseconnect-registration/internal/models"
	"nurseconnect-registration/internal/util"
)

type Step string

const (
	StepDetails       Step = "DETAILS"
	StepOptInConfirm  Step = "OPTIN_CONFIRM"
	StepClinicConfirm Step = "CLINIC_CONFIRM"
	StepSuccess       Step = "SUCCESS"
	StepRejected      Step = "REJECTED"
)

// ErrorAlertThreshold is the per-session failure count that raises an
// operator alert.
const ErrorAlertThreshold = 3

var ErrDispatchFailed = errors.New("failed to queue registration")

// Success is what the final page shows.
type Success struct {
	Channel      string
	ReferralLink string
}

type Wizard struct {
	contacts   ContactLookup
	facilities FacilityVerifier
	prober     ChannelProber
	referrals  ReferralRegistry
	dispatcher Dispatcher
	alerter    Alerter

	recorder EventRecorder
	metrics  *metrics.Metrics
	newID    func() string
}

type Option func(*Wizard)

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Wizard) { w.metrics = m }
}

func WithRecorder(r EventRecorder) Option {
	return func(w *Wizard) { w.recorder = r }
}

// WithIDGenerator replaces the registration id source.
func WithIDGenerator(fn func() string) Option {
	return func(w *Wizard) { w.newID = fn }
}

func NewWizard(
	contactLookup ContactLookup,
	facilities FacilityVerifier,
	prober ChannelProber,
	referrals ReferralRegistry,
	dispatcher Dispatcher,
	alerter Alerter,
	opts ...Option,
) *Wizard {
	w := &Wizard{
		contacts:   contactLookup,
		facilities: facilities,
		prober:     prober,
		referrals:  referrals,
		dispatcher: dispatcher,
		alerter:    alerter,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Entry handles a visit carrying a referral code. Unknown or malformed codes
// are ignored.
func (w *Wizard) Entry(ctx context.Context, sess *models.Session, code string) {
	if code == "" {
		return
	}
	link, err := w.referrals.Resolve(ctx, code)
	if err != nil {
		util.Debug("Ignoring referral code", zap.String("code", code), zap.Error(err))
		return
	}
	sess.ReferredBy = link.MSISDN
}

// SubmitDetails validates the details page. Shape errors are returned before
// any remote call. On success the session holds the details, the contact
// snapshot and the verified clinic.
func (w *Wizard) SubmitDetails(ctx context.Context, sess *models.Session, in DetailsInput) (Step, FieldErrors) {
	details, errs := ValidateDetails(in)
	if !errs.Empty() {
		w.record(ctx, sess, analytics.EventDetailsRejected, "shape")
		return StepDetails, errs
	}

	contact, err := w.contacts.Lookup(ctx, details.MSISDN)
	switch {
	case err != nil:
		errs.Add(FieldMSISDN, MsgCheckFailed)
	case contacts.InGroups(contact, contacts.DeliveryGroups...):
		errs.Add(FieldMSISDN, MsgAlreadyRegistered)
	}

	clinic, err := w.facilities.Verify(ctx, details.ClinicCode)
	switch {
	case err == nil:
	case errors.Is(err, facility.ErrFacilityCodeBlocked):
		errs.Add(FieldClinicCode, MsgBlockedClinicCode)
	case errors.Is(err, facility.ErrFacilityCodeNotFound), errors.Is(err, facility.ErrInvalidFacilityCode):
		errs.Add(FieldClinicCode, MsgUnknownClinicCode)
	default:
		w.countFailure(ctx, sess, alerting.KindJembiErrorLimit, err)
		errs.Add(FieldClinicCode, MsgCheckFailed)
	}

	if !errs.Empty() {
		w.record(ctx, sess, analytics.EventDetailsRejected, "verification")
		return StepDetails, errs
	}

	sess.RegistrationDetails = details
	sess.Contact = contact
	sess.ClinicName = clinic.Name
	sess.ClinicCode = clinic.Code

	next := StepClinicConfirm
	if contacts.InGroups(contact, contacts.GroupOptedOut) {
		next = StepOptInConfirm
	}
	w.transition(ctx, sess, StepDetails, next, analytics.EventDetailsSubmitted)
	return next, nil
}

// ConfirmOptIn records the answer of a previously opted-out contact.
func (w *Wizard) ConfirmOptIn(ctx context.Context, sess *models.Session, yes bool) Step {
	if !yes {
		w.transition(ctx, sess, StepOptInConfirm, StepRejected, analytics.EventOptInRejected)
		return StepRejected
	}
	w.transition(ctx, sess, StepOptInConfirm, StepClinicConfirm, analytics.EventOptInConfirmed)
	return StepClinicConfirm
}

// ConfirmClinic handles the clinic confirmation page. A yes probes the
// channel and queues the registration; now becomes the encounter date. A no
// sends the user back to re-enter the clinic code.
func (w *Wizard) ConfirmClinic(ctx context.Context, sess *models.Session, yes bool, now time.Time) (Step, error) {
	if !yes {
		sess.ClinicCode = ""
		sess.ClinicName = ""
		if sess.RegistrationDetails != nil {
			sess.RegistrationDetails.ClinicCode = ""
		}
		sess.AddMessage(FieldClinicCode, MsgUnknownClinicCode)
		w.transition(ctx, sess, StepClinicConfirm, StepDetails, analytics.EventClinicRejected)
		return StepDetails, nil
	}

	channel, err := w.prober.Channel(ctx, sess.MSISDN())
	if err != nil {
		w.countFailure(ctx, sess, alerting.KindWhatsAppErrorLimit, err)
		sess.AddMessage(FieldNonFieldErrors, MsgCheckFailed)
		return StepClinicConfirm, nil
	}

	sess.Channel = channel
	payload := w.BuildPayload(sess, now)
	if err := w.dispatcher.Dispatch(ctx, payload); err != nil {
		sess.Channel = ""
		sess.AddMessage(FieldNonFieldErrors, MsgRegistrationFailed)
		util.Error("Failed to queue registration",
			util.String("registration_id", payload.ID),
			util.MSISDN("msisdn", payload.MSISDN),
			zap.Error(err))
		return StepClinicConfirm, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	w.transition(ctx, sess, StepClinicConfirm, StepSuccess, analytics.EventClinicConfirmed)
	w.record(ctx, sess, analytics.EventRegistrationQueued, payload.ID)
	return StepSuccess, nil
}

// BuildPayload snapshots the session into a job payload.
func (w *Wizard) BuildPayload(sess *models.Session, now time.Time) *models.RegistrationPayload {
	p := &models.RegistrationPayload{
		ID:         w.newID(),
		MSISDN:     sess.MSISDN(),
		Channel:    sess.Channel,
		ClinicCode: sess.ClinicCode,
		Timestamp:  now.UTC(),
	}
	if sess.ReferredBy != "" {
		ref := sess.ReferredBy
		p.ReferralMSISDN = &ref
	}
	p.Persal = optionalField(sess.Contact, "persal")
	p.Sanc = optionalField(sess.Contact, "sanc")
	return p
}

// Complete builds the success page and clears the session. The session is
// left intact when the referral link cannot be issued so a reload retries.
func (w *Wizard) Complete(ctx context.Context, sess *models.Session, baseURL string) (*Success, error) {
	link, err := w.referrals.CreateOrGet(ctx, sess.MSISDN())
	if err != nil {
		return nil, fmt.Errorf("failed to get referral link: %w", err)
	}
	uri, err := w.referrals.BuildLink(baseURL, link)
	if err != nil {
		return nil, fmt.Errorf("failed to build referral link: %w", err)
	}

	out := &Success{Channel: sess.Channel, ReferralLink: uri}
	w.record(ctx, sess, analytics.EventRegistrationSuccess, sess.Channel)
	sess.Clear()
	return out, nil
}

// Guard reports whether step can be shown for sess. When it cannot, the
// returned step is the earliest one the session does satisfy.
func Guard(step Step, sess *models.Session) (Step, bool) {
	switch step {
	case StepOptInConfirm:
		if !sess.HasMSISDN() {
			return StepDetails, false
		}
	case StepClinicConfirm:
		if !sess.HasClinicName() {
			return StepDetails, false
		}
	case StepSuccess:
		if !sess.HasChannel() {
			if target, ok := Guard(StepClinicConfirm, sess); !ok {
				return target, false
			}
			return StepClinicConfirm, false
		}
	}
	return step, true
}

func (w *Wizard) countFailure(ctx context.Context, sess *models.Session, kind string, cause error) {
	var count int
	switch kind {
	case alerting.KindJembiErrorLimit:
		sess.JembiAPIErrors++
		count = sess.JembiAPIErrors
	case alerting.KindWhatsAppErrorLimit:
		sess.WhatsAppAPIErrors++
		count = sess.WhatsAppAPIErrors
	}
	if count == ErrorAlertThreshold {
		w.alerter.Alert(ctx, alerting.Alert{
			Kind:      kind,
			SessionID: sess.ID,
			MSISDN:    sess.MSISDN(),
			Err:       cause,
		})
	}
}

func (w *Wizard) transition(ctx context.Context, sess *models.Session, from, to Step, event string) {
	w.metrics.IncrementWizardTransition(string(from), string(to))
	w.record(ctx, sess, event, string(to))
}

func (w *Wizard) record(ctx context.Context, sess *models.Session, event, detail string) {
	if w.recorder == nil {
		return
	}
	w.recorder.Record(ctx, analytics.Event{
		Name:      event,
		SessionID: sess.ID,
		MSISDN:    sess.MSISDN(),
		Detail:    detail,
	})
}

func optionalField(contact *models.Contact, key string) *string {
	v := contact.Field(key)
	if v == "" {
		return nil
	}
	return &v
}
