package engine

import (
	"context"
	"sync"
	"time"

	"github.com/realmeet/slot-booking/internal/model"
)

// fakeStore is an in-memory Store used by the engine tests.  WithinTx
// copies the state, lets the unit of work mutate the copy and swaps
// it in on success, so a returned error rolls everything back just
// like the SQL implementation.
type fakeStore struct {
	mu    sync.Mutex
	state *fakeState
}

type participation struct {
	userID     uint64
	slotID     uint64
	activityID uint64
	seq        int
}

type fakeState struct {
	activities map[uint64]*model.Activity
	slots      map[uint64]*model.Slot
	parts      []participation
	partSeq    int

	convs   map[uint64]*model.Conversation // keyed by slot ID
	members map[uint64]map[uint64]bool     // conversation ID -> user IDs

	invites map[uint64]*model.Invitation // keyed by invitation ID

	userNames map[uint64]string
	nextID    uint64
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: &fakeState{
		activities: map[uint64]*model.Activity{},
		slots:      map[uint64]*model.Slot{},
		convs:      map[uint64]*model.Conversation{},
		members:    map[uint64]map[uint64]bool{},
		invites:    map[uint64]*model.Invitation{},
		userNames:  map[uint64]string{},
		nextID:     100,
	}}
}

func (s *fakeState) clone() *fakeState {
	c := &fakeState{
		activities: map[uint64]*model.Activity{},
		slots:      map[uint64]*model.Slot{},
		parts:      append([]participation(nil), s.parts...),
		partSeq:    s.partSeq,
		convs:      map[uint64]*model.Conversation{},
		members:    map[uint64]map[uint64]bool{},
		invites:    map[uint64]*model.Invitation{},
		userNames:  map[uint64]string{},
		nextID:     s.nextID,
	}
	for id, a := range s.activities {
		cp := *a
		c.activities[id] = &cp
	}
	for id, sl := range s.slots {
		cp := *sl
		c.slots[id] = &cp
	}
	for id, cv := range s.convs {
		cp := *cv
		c.convs[id] = &cp
	}
	for id, set := range s.members {
		m := map[uint64]bool{}
		for u := range set {
			m[u] = true
		}
		c.members[id] = m
	}
	for id, inv := range s.invites {
		cp := *inv
		if inv.RedeemerID != nil {
			r := *inv.RedeemerID
			cp.RedeemerID = &r
		}
		if inv.RedeemedAt != nil {
			t := *inv.RedeemedAt
			cp.RedeemedAt = &t
		}
		c.invites[id] = &cp
	}
	for id, n := range s.userNames {
		c.userNames[id] = n
	}
	return c
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(tx StoreTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(&fakeTx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *fakeStore) InvitationByToken(ctx context.Context, token string) (*model.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.inviteByToken(token), nil
}

func (s *fakeStore) InvitePreview(ctx context.Context, token string) (*model.InvitePreview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := s.state.inviteByToken(token)
	if inv == nil {
		return nil, ErrInviteNotFound
	}
	act := s.state.activities[inv.ActivityID]
	slot := s.state.slots[inv.SlotID]
	return &model.InvitePreview{
		ActivityID:   act.ID,
		ActivityName: act.Name,
		ActivityImg:  act.ImageURL,
		Location:     act.Location,
		PriceCents:   act.PriceCents,
		SlotID:       slot.ID,
		SlotStartsAt: slot.StartsAt,
		InviterName:  s.state.userNames[inv.IssuerID],
		PaymentMode:  inv.PaymentMode,
		ExpiresAt:    inv.ExpiresAt,
	}, nil
}

func (s *fakeStore) PendingInvitesBySlot(ctx context.Context, slotID, issuerID uint64) ([]model.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Invitation
	for _, inv := range s.state.invites {
		if inv.SlotID == slotID && inv.IssuerID == issuerID && inv.Status == model.InviteStatusPending {
			out = append(out, *inv)
		}
	}
	return out, nil
}

// --- test seeding helpers, called outside any unit of work ---

func (s *fakeStore) addActivity(a model.Activity) *model.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.state.nextID
		s.state.nextID++
	}
	s.state.activities[a.ID] = &a
	return &a
}

func (s *fakeStore) addSlot(sl model.Slot) *model.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl.ID == 0 {
		sl.ID = s.state.nextID
		s.state.nextID++
	}
	s.state.slots[sl.ID] = &sl
	return &sl
}

func (s *fakeStore) addUser(id uint64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.userNames[id] = name
}

func (s *fakeStore) conversationFor(slotID uint64) *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.state.convs[slotID]; ok {
		cp := *c
		return &cp
	}
	return nil
}

func (s *fakeStore) membersOf(convID uint64) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint64
	for u := range s.state.members[convID] {
		out = append(out, u)
	}
	return out
}

func (s *fakeStore) inviteStatus(token string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv := s.state.inviteByToken(token); inv != nil {
		return inv.Status
	}
	return ""
}

func (s *fakeStore) cachedCounter(activityID uint64) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.activities[activityID].Participants
}

func (s *fakeState) inviteByToken(token string) *model.Invitation {
	for _, inv := range s.invites {
		if inv.Token == token {
			cp := *inv
			return &cp
		}
	}
	return nil
}

func (s *fakeState) countBySlot(slotID uint64) uint32 {
	var n uint32
	for _, p := range s.parts {
		if p.slotID == slotID {
			n++
		}
	}
	return n
}

func (s *fakeState) countByActivity(activityID uint64) uint32 {
	var n uint32
	for _, p := range s.parts {
		if p.activityID == activityID {
			n++
		}
	}
	return n
}

// fakeTx implements StoreTx over one working copy of the state.
type fakeTx struct {
	st *fakeState
}

func (t *fakeTx) SlotWithActivity(ctx context.Context, slotID uint64) (*model.Slot, *model.Activity, error) {
	slot, ok := t.st.slots[slotID]
	if !ok {
		return nil, nil, ErrSlotNotFound
	}
	act, ok := t.st.activities[slot.ActivityID]
	if !ok {
		return nil, nil, ErrActivityNotFound
	}
	slotCopy, actCopy := *slot, *act
	return &slotCopy, &actCopy, nil
}

func (t *fakeTx) CountBySlot(ctx context.Context, slotID uint64) (uint32, error) {
	return t.st.countBySlot(slotID), nil
}

func (t *fakeTx) CountByActivity(ctx context.Context, activityID uint64) (uint32, error) {
	return t.st.countByActivity(activityID), nil
}

func (t *fakeTx) ParticipationSlotForActivity(ctx context.Context, userID, activityID uint64) (uint64, bool, error) {
	for _, p := range t.st.parts {
		if p.userID == userID && p.activityID == activityID {
			return p.slotID, true, nil
		}
	}
	return 0, false, nil
}

func (t *fakeTx) InsertParticipation(ctx context.Context, userID, slotID, activityID uint64) (bool, error) {
	for _, p := range t.st.parts {
		if p.userID == userID && p.slotID == slotID {
			return false, nil
		}
	}
	t.st.partSeq++
	t.st.parts = append(t.st.parts, participation{userID: userID, slotID: slotID, activityID: activityID, seq: t.st.partSeq})
	return true, nil
}

func (t *fakeTx) DeleteParticipation(ctx context.Context, userID, slotID uint64) (bool, error) {
	for i, p := range t.st.parts {
		if p.userID == userID && p.slotID == slotID {
			t.st.parts = append(t.st.parts[:i], t.st.parts[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) ParticipantsBySlot(ctx context.Context, slotID uint64) ([]model.Participation, error) {
	var parts []model.Participation
	for _, p := range t.st.parts {
		if p.slotID == slotID {
			parts = append(parts, model.Participation{
				ID:         uint64(p.seq),
				UserID:     p.userID,
				SlotID:     p.slotID,
				ActivityID: p.activityID,
			})
		}
	}
	return parts, nil
}

func (t *fakeTx) RefreshParticipantCounter(ctx context.Context, activityID uint64, count uint32) error {
	if act, ok := t.st.activities[activityID]; ok {
		act.Participants = count
	}
	return nil
}

func (t *fakeTx) ConversationBySlot(ctx context.Context, slotID uint64) (*model.Conversation, error) {
	if c, ok := t.st.convs[slotID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (t *fakeTx) InsertConversation(ctx context.Context, slotID uint64, name string) (*model.Conversation, bool, error) {
	if c, ok := t.st.convs[slotID]; ok {
		cp := *c
		return &cp, false, nil
	}
	c := &model.Conversation{ID: t.st.nextID, SlotID: slotID, Name: name}
	t.st.nextID++
	t.st.convs[slotID] = c
	t.st.members[c.ID] = map[uint64]bool{}
	cp := *c
	return &cp, true, nil
}

func (t *fakeTx) AddMember(ctx context.Context, conversationID, userID uint64) (bool, error) {
	set, ok := t.st.members[conversationID]
	if !ok {
		set = map[uint64]bool{}
		t.st.members[conversationID] = set
	}
	if set[userID] {
		return false, nil
	}
	set[userID] = true
	return true, nil
}

func (t *fakeTx) RemoveMember(ctx context.Context, conversationID, userID uint64) error {
	delete(t.st.members[conversationID], userID)
	return nil
}

func (t *fakeTx) DeleteConversation(ctx context.Context, conversationID uint64) error {
	for slotID, c := range t.st.convs {
		if c.ID == conversationID {
			delete(t.st.convs, slotID)
		}
	}
	delete(t.st.members, conversationID)
	return nil
}

func (t *fakeTx) InsertInvitation(ctx context.Context, inv *model.Invitation) error {
	inv.ID = t.st.nextID
	t.st.nextID++
	cp := *inv
	t.st.invites[inv.ID] = &cp
	return nil
}

func (t *fakeTx) InvitationByToken(ctx context.Context, token string) (*model.Invitation, error) {
	return t.st.inviteByToken(token), nil
}

func (t *fakeTx) MarkInvitationRedeemed(ctx context.Context, invitationID, redeemerID uint64) (bool, error) {
	inv, ok := t.st.invites[invitationID]
	if !ok || inv.Status != model.InviteStatusPending {
		return false, nil
	}
	now := time.Now().UTC()
	inv.Status = model.InviteStatusRedeemed
	inv.RedeemerID = &redeemerID
	inv.RedeemedAt = &now
	return true, nil
}

func (t *fakeTx) HasPendingInvite(ctx context.Context, issuerID, slotID uint64) (bool, error) {
	for _, inv := range t.st.invites {
		if inv.IssuerID == issuerID && inv.SlotID == slotID && inv.Status == model.InviteStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) CancelInvitation(ctx context.Context, invitationID, issuerID uint64) (bool, error) {
	inv, ok := t.st.invites[invitationID]
	if !ok || inv.IssuerID != issuerID || inv.Status != model.InviteStatusPending {
		return false, nil
	}
	inv.Status = model.InviteStatusCancelled
	return true, nil
}

func (t *fakeTx) UserName(ctx context.Context, userID uint64) (string, error) {
	if n, ok := t.st.userNames[userID]; ok {
		return n, nil
	}
	return "A participant", nil
}

// fakeEmitter collects emitted system messages in order.
type fakeEmitter struct {
	mu       sync.Mutex
	messages []string
	byConv   map[uint64][]string
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{byConv: map[uint64][]string{}}
}

func (f *fakeEmitter) Emit(ctx context.Context, conversationID uint64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	f.byConv[conversationID] = append(f.byConv[conversationID], text)
	return nil
}

func (f *fakeEmitter) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}
