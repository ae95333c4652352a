package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/realmeet/slot-booking/internal/model"
)

var testBase = time.Date(2026, 9, 12, 18, 30, 0, 0, time.UTC)

// newTestEngine seeds one activity with one future slot and returns
// the engine on a frozen clock.
func newTestEngine(t *testing.T, maxParticipants uint32) (*Engine, *fakeStore, *fakeEmitter, *model.Slot, *model.Activity) {
	t.Helper()
	store := newFakeStore()
	act := store.addActivity(model.Activity{Name: "Bouldering", Location: "North Wall", PriceCents: 1500, MaxParticipants: maxParticipants})
	slot := store.addSlot(model.Slot{ActivityID: act.ID, StartsAt: testBase.Add(2 * time.Hour), DurationMin: 90})
	store.addUser(1, "Ada")
	store.addUser(2, "Grace")
	store.addUser(3, "Edsger")
	store.addUser(4, "Barbara")
	emitter := newFakeEmitter()
	eng := New(store, emitter, nil, WithClock(func() time.Time { return testBase }))
	return eng, store, emitter, slot, act
}

func TestJoinFirstParticipant(t *testing.T) {
	eng, store, emitter, slot, act := newTestEngine(t, 4)
	ctx := context.Background()

	res, err := eng.Join(ctx, 1, slot.ID)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if res.Status != StatusJoined {
		t.Errorf("status = %q, want %q", res.Status, StatusJoined)
	}
	if res.ParticipantCount != 1 {
		t.Errorf("participant count = %d, want 1", res.ParticipantCount)
	}
	if conv := store.conversationFor(slot.ID); conv != nil {
		t.Errorf("conversation created for a single participant: %+v", conv)
	}
	if msgs := emitter.all(); len(msgs) != 0 {
		t.Errorf("unexpected system messages: %v", msgs)
	}
	if got := store.cachedCounter(act.ID); got != 1 {
		t.Errorf("cached counter = %d, want 1", got)
	}
}

func TestSecondJoinCreatesGroup(t *testing.T) {
	eng, store, emitter, slot, _ := newTestEngine(t, 4)
	ctx := context.Background()

	mustJoin(t, eng, 1, slot.ID)
	res, err := eng.Join(ctx, 2, slot.ID)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if res.ParticipantCount != 2 {
		t.Errorf("participant count = %d, want 2", res.ParticipantCount)
	}

	conv := store.conversationFor(slot.ID)
	if conv == nil {
		t.Fatal("conversation not created at two participants")
	}
	if want := "Bouldering - 2026-09-12 20:30"; conv.Name != want {
		t.Errorf("conversation name = %q, want %q", conv.Name, want)
	}
	if members := store.membersOf(conv.ID); len(members) != 2 {
		t.Errorf("members = %v, want both participants", members)
	}

	msgs := emitter.all()
	if len(msgs) != 3 {
		t.Fatalf("messages = %v, want creation plus two join announcements", msgs)
	}
	if !strings.HasPrefix(msgs[0], "Group created for ") {
		t.Errorf("first message = %q, want group creation", msgs[0])
	}
	joined := strings.Join(msgs[1:], "|")
	for _, name := range []string{"Ada", "Grace"} {
		if !strings.Contains(joined, name+" joined the group") {
			t.Errorf("missing join announcement for %s in %v", name, msgs)
		}
	}
}

func TestThirdJoinAnnouncesOnlyNewMember(t *testing.T) {
	eng, store, emitter, slot, _ := newTestEngine(t, 4)

	mustJoin(t, eng, 1, slot.ID)
	mustJoin(t, eng, 2, slot.ID)
	before := len(emitter.all())

	mustJoin(t, eng, 3, slot.ID)
	msgs := emitter.all()
	if len(msgs) != before+1 {
		t.Fatalf("messages after third join = %v, want exactly one more", msgs)
	}
	if msgs[len(msgs)-1] != "Edsger joined the group" {
		t.Errorf("last message = %q", msgs[len(msgs)-1])
	}
	conv := store.conversationFor(slot.ID)
	if members := store.membersOf(conv.ID); len(members) != 3 {
		t.Errorf("members = %v, want three", members)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	eng, _, emitter, slot, _ := newTestEngine(t, 4)
	ctx := context.Background()

	mustJoin(t, eng, 1, slot.ID)
	res, err := eng.Join(ctx, 1, slot.ID)
	if err != nil {
		t.Fatalf("duplicate Join: %v", err)
	}
	if res.Status != StatusAlreadyJoined {
		t.Errorf("status = %q, want %q", res.Status, StatusAlreadyJoined)
	}
	if res.ParticipantCount != 1 {
		t.Errorf("participant count = %d, want 1", res.ParticipantCount)
	}
	if msgs := emitter.all(); len(msgs) != 0 {
		t.Errorf("duplicate join emitted messages: %v", msgs)
	}
}

func TestJoinRejectsOtherSlotOfSameActivity(t *testing.T) {
	eng, store, _, slot, act := newTestEngine(t, 4)
	other := store.addSlot(model.Slot{ActivityID: act.ID, StartsAt: testBase.Add(26 * time.Hour), DurationMin: 90})

	mustJoin(t, eng, 1, slot.ID)
	_, err := eng.Join(context.Background(), 1, other.ID)
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("err = %v, want ErrAlreadyRegistered", err)
	}
}

func TestJoinCapacity(t *testing.T) {
	eng, _, _, slot, _ := newTestEngine(t, 2)

	mustJoin(t, eng, 1, slot.ID)
	mustJoin(t, eng, 2, slot.ID)
	_, err := eng.Join(context.Background(), 3, slot.ID)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
}

func TestCapacityCountsAcrossSlots(t *testing.T) {
	eng, store, _, slot, act := newTestEngine(t, 2)
	other := store.addSlot(model.Slot{ActivityID: act.ID, StartsAt: testBase.Add(26 * time.Hour), DurationMin: 90})

	mustJoin(t, eng, 1, slot.ID)
	mustJoin(t, eng, 2, other.ID)
	_, err := eng.Join(context.Background(), 3, slot.ID)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded when the activity is full across slots", err)
	}
}

func TestJoinEndedSlot(t *testing.T) {
	eng, store, _, _, act := newTestEngine(t, 4)
	past := store.addSlot(model.Slot{ActivityID: act.ID, StartsAt: testBase.Add(-3 * time.Hour), DurationMin: 60})

	_, err := eng.Join(context.Background(), 1, past.ID)
	if !errors.Is(err, ErrSlotEnded) {
		t.Fatalf("err = %v, want ErrSlotEnded", err)
	}
}

func TestJoinUnknownSlot(t *testing.T) {
	eng, _, _, _, _ := newTestEngine(t, 4)
	_, err := eng.Join(context.Background(), 1, 9999)
	if !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("err = %v, want ErrSlotNotFound", err)
	}
}

func TestLeaveBelowThresholdDeletesGroup(t *testing.T) {
	eng, store, emitter, slot, _ := newTestEngine(t, 4)
	ctx := context.Background()

	mustJoin(t, eng, 1, slot.ID)
	mustJoin(t, eng, 2, slot.ID)
	if store.conversationFor(slot.ID) == nil {
		t.Fatal("group missing before leave")
	}

	res, err := eng.Leave(ctx, 2, slot.ID)
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if res.Status != StatusLeft || res.ParticipantCount != 1 {
		t.Errorf("leave result = %+v", res)
	}
	if store.conversationFor(slot.ID) != nil {
		t.Error("conversation survived dropping below two participants")
	}
	msgs := emitter.all()
	if len(msgs) == 0 || msgs[len(msgs)-1] != "Grace left the group" {
		t.Errorf("messages = %v, want trailing leave announcement", msgs)
	}
}

func TestLeaveKeepsGroupAtThreshold(t *testing.T) {
	eng, store, _, slot, _ := newTestEngine(t, 4)

	mustJoin(t, eng, 1, slot.ID)
	mustJoin(t, eng, 2, slot.ID)
	mustJoin(t, eng, 3, slot.ID)

	if _, err := eng.Leave(context.Background(), 3, slot.ID); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	conv := store.conversationFor(slot.ID)
	if conv == nil {
		t.Fatal("conversation deleted although two participants remain")
	}
	if members := store.membersOf(conv.ID); len(members) != 2 {
		t.Errorf("members = %v, want two", members)
	}
}

func TestLeaveWithoutSeatIsIdempotent(t *testing.T) {
	eng, _, emitter, slot, _ := newTestEngine(t, 4)

	res, err := eng.Leave(context.Background(), 1, slot.ID)
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if res.Status != StatusNotJoined {
		t.Errorf("status = %q, want %q", res.Status, StatusNotJoined)
	}
	if msgs := emitter.all(); len(msgs) != 0 {
		t.Errorf("unexpected messages: %v", msgs)
	}
}

func TestRejoinAfterLeaveRecreatesGroup(t *testing.T) {
	eng, store, _, slot, _ := newTestEngine(t, 4)

	mustJoin(t, eng, 1, slot.ID)
	mustJoin(t, eng, 2, slot.ID)
	first := store.conversationFor(slot.ID)
	if _, err := eng.Leave(context.Background(), 2, slot.ID); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	mustJoin(t, eng, 2, slot.ID)

	second := store.conversationFor(slot.ID)
	if second == nil {
		t.Fatal("group not recreated on re-crossing the threshold")
	}
	if first != nil && second.ID == first.ID {
		t.Error("expected a fresh conversation, got the deleted one")
	}
	if members := store.membersOf(second.ID); len(members) != 2 {
		t.Errorf("members = %v, want both participants reseeded", members)
	}
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	eng, store, _, slot, act := newTestEngine(t, 3)
	const contenders = 8
	for id := uint64(5); id <= contenders; id++ {
		store.addUser(id, "Visitor")
	}

	errs := make([]error, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.Join(context.Background(), uint64(i+1), slot.ID)
		}(i)
	}
	wg.Wait()

	var joined, full int
	for _, err := range errs {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, ErrCapacityExceeded):
			full++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	if joined != 3 || full != contenders-3 {
		t.Fatalf("joined=%d full=%d, want exactly the capacity to win", joined, full)
	}

	conv := store.conversationFor(slot.ID)
	if conv == nil {
		t.Fatal("no group although three seats were granted")
	}
	if members := store.membersOf(conv.ID); len(members) != 3 {
		t.Errorf("members = %v, want the three winners", members)
	}
	if got := store.cachedCounter(act.ID); got != 3 {
		t.Errorf("cached counter = %d, want 3", got)
	}
}

func mustJoin(t *testing.T, eng *Engine, userID, slotID uint64) {
	t.Helper()
	res, err := eng.Join(context.Background(), userID, slotID)
	if err != nil {
		t.Fatalf("Join(user=%d): %v", userID, err)
	}
	if res.Status != StatusJoined {
		t.Fatalf("Join(user=%d) status = %q, want %q", userID, res.Status, StatusJoined)
	}
}
