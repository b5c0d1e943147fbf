package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"studio/internal/domain"
)

func TestRegistryCreateGetDelete(t *testing.T) {
	reg := NewRegistry(&stubEditor{}, time.Hour, nil)

	ctrl := reg.Create()
	if ctrl.ID() == "" {
		t.Fatal("session id should not be empty")
	}
	got, err := reg.Get(ctrl.ID())
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != ctrl {
		t.Fatal("Get returned a different controller")
	}
	if reg.Len() != 1 {
		t.Fatalf("Len = %d, want 1", reg.Len())
	}

	if err := reg.Delete(ctrl.ID()); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := reg.Get(ctrl.ID()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get after delete error = %v, want ErrNotFound", err)
	}
	if err := reg.Delete(ctrl.ID()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second Delete error = %v, want ErrNotFound", err)
	}
	if _, err := ctrl.Upload(img("A"), "image/png"); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("Upload on deleted session error = %v, want ErrSessionClosed", err)
	}
}

func TestRegistrySessionsAreIsolated(t *testing.T) {
	editor := (&stubEditor{}).returns(img("B"))
	reg := NewRegistry(editor, time.Hour, nil)

	first := reg.Create()
	second := reg.Create()
	if first.ID() == second.ID() {
		t.Fatal("sessions share an id")
	}
	mustUpload(t, first, img("A"))
	mustUpload(t, second, img("X"))

	if _, err := first.Submit(context.Background(), "remove the background"); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	assertState(t, first.Snapshot(), img("B"), img("A"))
	assertState(t, second.Snapshot(), img("X"))
}

func TestRegistryCloseAll(t *testing.T) {
	reg := NewRegistry(&stubEditor{}, time.Hour, nil)
	ctrl := reg.Create()
	reg.CloseAll()

	if reg.Len() != 0 {
		t.Fatalf("Len = %d, want 0", reg.Len())
	}
	if _, err := ctrl.SetDraft("x"); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("SetDraft error = %v, want ErrSessionClosed", err)
	}
}

func TestRegistryUnknownID(t *testing.T) {
	reg := NewRegistry(&stubEditor{}, time.Hour, nil)
	if _, err := reg.Get("does-not-exist"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get error = %v, want ErrNotFound", err)
	}
}

func TestRegistryExpiryClosesController(t *testing.T) {
	reg := NewRegistry(&stubEditor{}, 10*time.Millisecond, nil)
	ctrl := reg.Create()
	mustUpload(t, ctrl, img("A"))

	time.Sleep(30 * time.Millisecond)
	reg.sessions.DeleteExpired()

	if _, err := reg.Get(ctrl.ID()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get after expiry error = %v, want ErrNotFound", err)
	}
	if _, err := ctrl.SetDraft("x"); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("SetDraft after expiry error = %v, want ErrSessionClosed", err)
	}
}

func TestRegistryGetSlidesExpiry(t *testing.T) {
	reg := NewRegistry(&stubEditor{}, 80*time.Millisecond, nil)
	ctrl := reg.Create()

	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		if _, err := reg.Get(ctrl.ID()); err != nil {
			t.Fatalf("Get %d error: %v", i, err)
		}
	}
}

func TestRegistryGetNeverRevivesDeletedSession(t *testing.T) {
	reg := NewRegistry(&stubEditor{}, time.Hour, nil)

	for i := 0; i < 200; i++ {
		ctrl := reg.Create()
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _ = reg.Get(ctrl.ID())
			}
		}()
		go func() {
			defer wg.Done()
			_ = reg.Delete(ctrl.ID())
		}()
		wg.Wait()

		if _, err := reg.Get(ctrl.ID()); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Get after delete error = %v, want ErrNotFound", err)
		}
	}
	if reg.Len() != 0 {
		t.Fatalf("Len = %d, want 0", reg.Len())
	}
}
