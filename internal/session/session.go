// Package session implements the survey state machine: screen transitions,
// the item cursor, the response recorder, and the bookkeeping that decides
// which responses the submission pipeline must dispatch.
//
// A Session is owned by a single event loop and is not safe for concurrent
// use. Asynchronous work (pool loading, dispatch) happens outside; its
// outcome is fed back through PoolLoaded/LoadFailed and Settle/Abort.
package session

import (
	"fmt"
	"strings"

	"prefsurvey/internal/logging"
	"prefsurvey/internal/pool"

	"github.com/google/uuid"
)

// Screen is a state of the respondent flow.
type Screen int

const (
	ScreenEntry Screen = iota
	ScreenIdentify
	ScreenSelectForm
	ScreenLoading
	ScreenReview
	ScreenConfirm
	ScreenComplete
)

func (s Screen) String() string {
	switch s {
	case ScreenEntry:
		return "entry"
	case ScreenIdentify:
		return "identify"
	case ScreenSelectForm:
		return "select-form"
	case ScreenLoading:
		return "loading"
	case ScreenReview:
		return "review"
	case ScreenConfirm:
		return "confirm"
	case ScreenComplete:
		return "complete"
	}
	return fmt.Sprintf("screen(%d)", int(s))
}

// Delivery selects when responses are dispatched.
type Delivery string

const (
	// DeliveryPerItem dispatches each response when leaving its item.
	DeliveryPerItem Delivery = "per_item"
	// DeliveryBatch dispatches every response once, from the final submit.
	DeliveryBatch Delivery = "batch"
)

// Flow selects which optional screens and behaviors are reachable.
type Flow struct {
	ChooseForm bool
	Confirm    bool
	AllowBack  bool
	Delivery   Delivery
}

// Form is one choice on the select-form screen.
type Form struct {
	Key   string
	Label string
}

// Options configures a Session.
type Options struct {
	Flow Flow
	// EmailDomain restricts accepted addresses; empty accepts any domain.
	EmailDomain string
	Forms       []Form
	// DefaultForm is used when the chooser is disabled. Empty picks the
	// first configured form.
	DefaultForm string
}

// Response is one recorded judgment, keyed by item id.
type Response struct {
	ItemID         string    `json:"item_id"`
	Question       string    `json:"question"`
	PreferredModel string    `json:"preferred_model"`
	PreferredText  string    `json:"preferred_text"`
	Slot           pool.Slot `json:"slot"`
	Group          string    `json:"group"`
}

// DispatchKind tells the pipeline how a failed delivery is handled.
type DispatchKind int

const (
	// DispatchItem failures are suppressed; the session advances anyway.
	DispatchItem DispatchKind = iota
	// DispatchFinal failures keep the respondent on the submitting screen.
	DispatchFinal
)

// Dispatch is the unit of work handed to the submission pipeline. While one
// is outstanding the session refuses every transition.
type Dispatch struct {
	Kind      DispatchKind
	SessionID string
	Email     string
	Form      string
	Responses []Response
}

// SummaryRow describes one item for the confirm and completion screens.
type SummaryRow struct {
	Index     int
	ItemID    string
	Question  string
	Answered  bool
	Slot      pool.Slot
	Model     string
	Delivered bool
}

// Session is the survey state machine.
type Session struct {
	id   string
	opts Options
	log  *logging.Logger

	screen Screen
	email  string
	form   string

	items     []pool.Item
	index     map[string]int
	cursor    int
	responses map[string]Response
	delivered map[string]Response

	pending   *Dispatch
	loadErr   error
	submitErr error
}

// New creates a session on the entry screen.
func New(opts Options) *Session {
	if opts.Flow.Delivery == "" {
		opts.Flow.Delivery = DeliveryPerItem
	}
	id := uuid.NewString()
	s := &Session{
		id:        id,
		opts:      opts,
		log:       logging.Get(logging.CategorySession).With("session_id", id),
		screen:    ScreenEntry,
		responses: make(map[string]Response),
		delivered: make(map[string]Response),
	}
	logging.Audit(logging.AuditEvent{Type: logging.AuditSessionStart, SessionID: id, Success: true,
		Fields: map[string]any{"delivery": string(opts.Flow.Delivery)}})
	return s
}

// =============================================================================
// ACCESSORS
// =============================================================================

func (s *Session) ID() string { return s.id }
func (s *Session) Screen() Screen { return s.screen }
func (s *Session) Email() string { return s.email }
func (s *Session) Form() string { return s.form }
func (s *Session) Flow() Flow { return s.opts.Flow }
func (s *Session) Forms() []Form { return s.opts.Forms }
func (s *Session) Cursor() int { return s.cursor }
func (s *Session) Len() int { return len(s.items) }
func (s *Session) Pending() bool { return s.pending != nil }
func (s *Session) LoadErr() error { return s.loadErr }
func (s *Session) SubmitErr() error { return s.submitErr }
func (s *Session) IsLast() bool { return s.cursor == len(s.items)-1 }
func (s *Session) Answered() int { return len(s.responses) }

// Items returns a copy of the pool in presentation order.
func (s *Session) Items() []pool.Item {
	out := make([]pool.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Current returns the item under the cursor while reviewing.
func (s *Session) Current() (pool.Item, bool) {
	if s.screen != ScreenReview || len(s.items) == 0 {
		return pool.Item{}, false
	}
	return s.items[s.cursor], true
}

// Response returns the recorded response for an item.
func (s *Session) Response(itemID string) (Response, bool) {
	r, ok := s.responses[itemID]
	return r, ok
}

// Responses returns a copy of the response map.
func (s *Session) Responses() map[string]Response {
	out := make(map[string]Response, len(s.responses))
	for k, v := range s.responses {
		out[k] = v
	}
	return out
}

// Delivered reports whether the item's current response was acknowledged by
// the transport.
func (s *Session) Delivered(itemID string) bool {
	r, ok := s.responses[itemID]
	if !ok {
		return false
	}
	d, ok := s.delivered[itemID]
	return ok && d == r
}

// Undelivered counts recorded responses the transport has not acknowledged.
func (s *Session) Undelivered() int {
	n := 0
	for id := range s.responses {
		if !s.Delivered(id) {
			n++
		}
	}
	return n
}

// Progress is (cursor+1)/len(pool) while reviewing, 1 after the last item.
func (s *Session) Progress() float64 {
	switch s.screen {
	case ScreenReview:
		if len(s.items) == 0 {
			return 0
		}
		return float64(s.cursor+1) / float64(len(s.items))
	case ScreenConfirm, ScreenComplete:
		return 1
	}
	return 0
}

// Summary lists every item with its recorded choice.
func (s *Session) Summary() []SummaryRow {
	rows := make([]SummaryRow, len(s.items))
	for i, it := range s.items {
		r, ok := s.responses[it.ID]
		rows[i] = SummaryRow{
			Index:     i,
			ItemID:    it.ID,
			Question:  it.Question,
			Answered:  ok,
			Slot:      r.Slot,
			Model:     r.PreferredModel,
			Delivered: s.Delivered(it.ID),
		}
	}
	return rows
}

// =============================================================================
// ENTRY / IDENTIFY / SELECT-FORM / LOADING
// =============================================================================

// Start leaves the entry screen.
func (s *Session) Start() error {
	if s.screen != ScreenEntry {
		return s.invalid("start")
	}
	s.setScreen(ScreenIdentify)
	return nil
}

// Identify validates and stores the email. On failure the session stays on
// the identify screen and a *ValidationError is returned.
func (s *Session) Identify(email string) error {
	if s.screen != ScreenIdentify {
		return s.invalid("identify")
	}
	if err := ValidateEmail(email, s.opts.EmailDomain); err != nil {
		s.log.Info("email rejected: %v", err)
		return err
	}
	s.email = strings.TrimSpace(email)
	logging.Audit(logging.AuditEvent{Type: logging.AuditIdentified, SessionID: s.id, Success: true})

	if s.opts.Flow.ChooseForm && len(s.opts.Forms) > 0 {
		s.setScreen(ScreenSelectForm)
		return nil
	}
	s.form = s.opts.DefaultForm
	if s.form == "" && len(s.opts.Forms) > 0 {
		s.form = s.opts.Forms[0].Key
	}
	s.setScreen(ScreenLoading)
	return nil
}

// ChooseForm selects the form whose pool will be loaded.
func (s *Session) ChooseForm(key string) error {
	if s.screen != ScreenSelectForm {
		return s.invalid("choose form")
	}
	for _, f := range s.opts.Forms {
		if f.Key == key {
			s.form = key
			s.setScreen(ScreenLoading)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownForm, key)
}

// BeginLoad clears a previous load failure before a manual retry.
func (s *Session) BeginLoad() error {
	if s.screen != ScreenLoading {
		return s.invalid("load")
	}
	s.loadErr = nil
	return nil
}

// PoolLoaded installs the pool and enters review at item 0. An empty pool is
// a load failure: the session stays on the loading screen.
func (s *Session) PoolLoaded(items []pool.Item) error {
	if s.screen != ScreenLoading {
		return s.invalid("install pool")
	}
	if len(items) == 0 {
		s.LoadFailed(pool.ErrEmptyPool)
		return pool.ErrEmptyPool
	}
	index := make(map[string]int, len(items))
	for i, it := range items {
		if _, dup := index[it.ID]; dup {
			err := &pool.LoadError{Group: it.Group, Source: "pool", Err: fmt.Errorf("duplicate item id %q", it.ID)}
			s.LoadFailed(err)
			return err
		}
		index[it.ID] = i
	}
	s.items = make([]pool.Item, len(items))
	copy(s.items, items)
	s.index = index
	s.cursor = 0
	s.loadErr = nil
	logging.Audit(logging.AuditEvent{Type: logging.AuditPoolLoaded, SessionID: s.id, Success: true,
		Fields: map[string]any{"items": len(items), "form": s.form}})
	s.setScreen(ScreenReview)
	return nil
}

// LoadFailed records a load failure; the loading screen shows it until the
// respondent retries or quits.
func (s *Session) LoadFailed(err error) {
	if s.screen != ScreenLoading {
		return
	}
	s.loadErr = err
	s.log.Error("pool load failed: %v", err)
	logging.Audit(logging.AuditEvent{Type: logging.AuditPoolFailed, SessionID: s.id, Err: err})
}

// =============================================================================
// REVIEW
// =============================================================================

// Record stores the respondent's preference for an item, replacing any
// previous choice. It never moves the cursor.
func (s *Session) Record(itemID string, slot pool.Slot) error {
	if s.screen != ScreenReview {
		return s.invalid("record")
	}
	if s.pending != nil {
		return ErrPending
	}
	if !slot.Valid() {
		return ErrInvalidSlot
	}
	i, ok := s.index[itemID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, itemID)
	}
	it := s.items[i]
	c, _ := it.Candidate(slot)
	s.responses[itemID] = Response{
		ItemID:         itemID,
		Question:       it.Question,
		PreferredModel: c.Model,
		PreferredText:  c.Text,
		Slot:           slot,
		Group:          it.Group,
	}
	logging.Audit(logging.AuditEvent{Type: logging.AuditPreference, SessionID: s.id, ItemID: itemID, Success: true,
		Fields: map[string]any{"slot": string(slot), "model": c.Model}})
	return nil
}

// RecordCurrent records a preference for the item under the cursor.
func (s *Session) RecordCurrent(slot pool.Slot) error {
	it, ok := s.Current()
	if !ok {
		return s.invalid("record")
	}
	return s.Record(it.ID, slot)
}

// CanAdvance reports whether the advance control is enabled.
func (s *Session) CanAdvance() bool {
	if s.screen != ScreenReview || s.pending != nil || len(s.items) == 0 {
		return false
	}
	_, ok := s.responses[s.items[s.cursor].ID]
	return ok
}

// CanBack reports whether the back control is enabled.
func (s *Session) CanBack() bool {
	return s.screen == ScreenReview && s.opts.Flow.AllowBack && s.pending == nil && s.cursor > 0
}

// Advance leaves the current item. When something must be delivered first it
// returns the Dispatch and the session waits for Settle (or Abort); otherwise
// the transition happens immediately and the returned Dispatch is nil.
func (s *Session) Advance() (*Dispatch, error) {
	if s.screen != ScreenReview {
		return nil, s.invalid("advance")
	}
	if s.pending != nil {
		return nil, ErrPending
	}
	it := s.items[s.cursor]
	r, ok := s.responses[it.ID]
	if !ok {
		return nil, ErrNoResponse
	}
	s.submitErr = nil

	switch {
	case s.opts.Flow.Delivery == DeliveryPerItem:
		if s.Delivered(it.ID) {
			s.log.Debug("item %s unchanged since delivery; not re-sent", it.ID)
			s.step()
			return nil, nil
		}
		return s.begin(DispatchItem, []Response{r}), nil

	case s.IsLast() && !s.opts.Flow.Confirm:
		return s.begin(DispatchFinal, s.ordered(false)), nil
	}

	s.step()
	return nil, nil
}

// Back moves to the previous item when the flow allows it.
func (s *Session) Back() error {
	if s.screen != ScreenReview || !s.opts.Flow.AllowBack {
		return s.invalid("back")
	}
	if s.pending != nil {
		return ErrPending
	}
	if s.cursor == 0 {
		return s.invalid("back from first item")
	}
	s.submitErr = nil
	s.cursor--
	s.log.Debug("back to item %d/%d", s.cursor+1, len(s.items))
	return nil
}

// =============================================================================
// CONFIRM / COMPLETE
// =============================================================================

// Revise returns from the confirm screen to the last item.
func (s *Session) Revise() error {
	if s.screen != ScreenConfirm {
		return s.invalid("revise")
	}
	if s.pending != nil {
		return ErrPending
	}
	s.submitErr = nil
	s.cursor = len(s.items) - 1
	s.setScreen(ScreenReview)
	return nil
}

// Submit is the final submit action on the confirm screen. In batch mode it
// dispatches every response; in per-item mode only responses whose current
// value was never delivered. A nil Dispatch means the session completed.
func (s *Session) Submit() (*Dispatch, error) {
	if s.screen != ScreenConfirm {
		return nil, s.invalid("submit")
	}
	if s.pending != nil {
		return nil, ErrPending
	}
	s.submitErr = nil
	rs := s.ordered(s.opts.Flow.Delivery == DeliveryPerItem)
	if len(rs) == 0 {
		s.complete()
		return nil, nil
	}
	return s.begin(DispatchFinal, rs), nil
}

// Settle reports the outcome of the outstanding dispatch.
//
// Item dispatches advance whatever err is; the failure is logged and the
// response stays undelivered. Final dispatches complete the session on
// success and otherwise keep the respondent where they are with SubmitErr set.
func (s *Session) Settle(err error) error {
	d := s.pending
	if d == nil {
		return s.invalid("settle without a pending dispatch")
	}
	s.pending = nil

	ids := make([]string, len(d.Responses))
	for i, r := range d.Responses {
		ids[i] = r.ItemID
	}
	if err == nil {
		for _, r := range d.Responses {
			s.delivered[r.ItemID] = r
		}
		logging.Audit(logging.AuditEvent{Type: logging.AuditDispatch, SessionID: s.id, Success: true,
			Fields: map[string]any{"items": ids, "final": d.Kind == DispatchFinal}})
	} else {
		s.log.Warn("dispatch of %v failed: %v", ids, err)
		logging.Audit(logging.AuditEvent{Type: logging.AuditDispatchFailed, SessionID: s.id, Err: err,
			Fields: map[string]any{"items": ids, "final": d.Kind == DispatchFinal}})
	}

	switch d.Kind {
	case DispatchItem:
		s.step()
	case DispatchFinal:
		if err != nil {
			s.submitErr = err
			return nil
		}
		s.complete()
	}
	return nil
}

// Abort cancels a dispatch that could not be started (for example, no
// endpoint is configured). Nothing is transitioned; err is kept as
// SubmitErr so the screen can explain why the action was blocked.
func (s *Session) Abort(err error) {
	if s.pending == nil {
		return
	}
	s.pending = nil
	s.submitErr = err
	s.log.Warn("dispatch blocked: %v", err)
	logging.Audit(logging.AuditEvent{Type: logging.AuditSubmitBlocked, SessionID: s.id, Err: err})
}

// ForceComplete lets the respondent leave after a failed final submit.
func (s *Session) ForceComplete() error {
	if s.pending != nil {
		return ErrPending
	}
	if s.submitErr == nil || (s.screen != ScreenConfirm && s.screen != ScreenReview) {
		return s.invalid("force complete")
	}
	s.log.Warn("completed with %d undelivered responses after: %v", s.Undelivered(), s.submitErr)
	s.complete()
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Session) begin(kind DispatchKind, rs []Response) *Dispatch {
	s.pending = &Dispatch{
		Kind:      kind,
		SessionID: s.id,
		Email:     s.email,
		Form:      s.form,
		Responses: rs,
	}
	return s.pending
}

// step moves past the current item once its dispatch (if any) settled.
func (s *Session) step() {
	if s.cursor+1 < len(s.items) {
		s.cursor++
		s.log.Debug("item %d/%d", s.cursor+1, len(s.items))
		return
	}
	if s.opts.Flow.Confirm {
		s.setScreen(ScreenConfirm)
		return
	}
	s.complete()
}

func (s *Session) complete() {
	s.submitErr = nil
	s.setScreen(ScreenComplete)
	logging.Audit(logging.AuditEvent{Type: logging.AuditSessionComplete, SessionID: s.id, Success: true,
		Fields: map[string]any{"answered": len(s.responses), "items": len(s.items)}})
}

// ordered returns responses in pool order, optionally only undelivered ones.
func (s *Session) ordered(undeliveredOnly bool) []Response {
	var out []Response
	for _, it := range s.items {
		r, ok := s.responses[it.ID]
		if !ok {
			continue
		}
		if undeliveredOnly && s.Delivered(it.ID) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (s *Session) setScreen(next Screen) {
	s.log.Info("screen %s -> %s", s.screen, next)
	s.screen = next
}

func (s *Session) invalid(action string) error {
	if s.pending != nil {
		return ErrPending
	}
	return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, action, s.screen)
}
