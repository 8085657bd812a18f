package dock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/windock/windock/internal/winapi"
)

const testHost = winapi.HWND(0x1)

func testEmbedder(fs *fakeWindowSystem) *embedder {
	return &embedder{ws: fs, verifyChecks: 3, verifyInterval: time.Millisecond}
}

func TestEmbedder_HappyPath(t *testing.T) {
	quietLogger(t)
	fs := newFakeWindowSystem()
	w := fs.addWindow(winapi.WindowInfo{
		Handle:  0x10,
		PID:     42,
		Title:   "Notepad",
		Visible: true,
		Style:   winapi.WS_CAPTION | winapi.WS_THICKFRAME | winapi.WS_SYSMENU,
		ExStyle: winapi.WS_EX_WINDOWEDGE,
	})

	rect := winapi.Rect{X: 300, Y: 86, Width: 900, Height: 714}
	if err := testEmbedder(fs).Embed(context.Background(), 0x10, testHost, rect); err != nil {
		t.Fatalf("expected successful embed, got %v", err)
	}

	if w.parent != testHost {
		t.Errorf("expected parent %s, got %s", testHost, w.parent)
	}
	if w.info.Style&winapi.WS_CHILD == 0 {
		t.Error("expected WS_CHILD after embedding")
	}
	if w.info.Style&winapi.WS_THICKFRAME != 0 {
		t.Error("expected WS_THICKFRAME stripped after embedding")
	}
	if w.info.Style&winapi.WS_CAPTION == 0 {
		t.Error("expected caption preserved for a captioned window")
	}
	if w.info.ExStyle&winapi.WS_EX_WINDOWEDGE != 0 {
		t.Error("expected WS_EX_WINDOWEDGE stripped after embedding")
	}

	calls := fs.positionsFor(0x10)
	if len(calls) != 1 {
		t.Fatalf("expected 1 position call, got %d", len(calls))
	}
	if calls[0].rect != rect {
		t.Errorf("expected rect %+v, got %+v", rect, calls[0].rect)
	}
	if !calls[0].show {
		t.Error("expected embed positioning to show the window")
	}
	if fs.redrawn[0x10] == 0 {
		t.Error("expected a redraw after the verification burst")
	}
}

func TestEmbedder_CaptionlessWindowGetsBorder(t *testing.T) {
	quietLogger(t)
	fs := newFakeWindowSystem()
	w := fs.addWindow(winapi.WindowInfo{Handle: 0x11, PID: 42, Visible: true, Style: winapi.WS_POPUP})

	err := testEmbedder(fs).Embed(context.Background(), 0x11, testHost, winapi.Rect{Width: 100, Height: 100})
	if err != nil {
		t.Fatalf("expected successful embed, got %v", err)
	}
	if w.info.Style&winapi.WS_CAPTION == winapi.WS_CAPTION {
		t.Error("expected no caption added to a captionless window")
	}
	if w.info.Style&winapi.WS_BORDER == 0 {
		t.Error("expected WS_BORDER on a captionless window")
	}
	if w.info.Style&winapi.WS_POPUP != 0 {
		t.Error("expected WS_POPUP stripped after embedding")
	}
}

func TestEmbedder_DeadBeforeStart(t *testing.T) {
	quietLogger(t)
	fs := newFakeWindowSystem()

	err := testEmbedder(fs).Embed(context.Background(), 0x12, testHost, winapi.Rect{})
	if !errors.Is(err, ErrEmbedSelfClosed) {
		t.Errorf("expected ErrEmbedSelfClosed, got %v", err)
	}
}

func TestEmbedder_Refused(t *testing.T) {
	quietLogger(t)
	fs := newFakeWindowSystem()
	w := fs.addWindow(winapi.WindowInfo{Handle: 0x13, PID: 42, Title: "Stubborn", Visible: true})
	w.refuseParent = true

	err := testEmbedder(fs).Embed(context.Background(), 0x13, testHost, winapi.Rect{})
	if !errors.Is(err, ErrEmbedRefused) {
		t.Errorf("expected ErrEmbedRefused, got %v", err)
	}
	if w.parent != 0 {
		t.Errorf("expected window to stay unparented, got %s", w.parent)
	}
}

func TestEmbedder_DiesOnReparent(t *testing.T) {
	quietLogger(t)
	fs := newFakeWindowSystem()
	w := fs.addWindow(winapi.WindowInfo{Handle: 0x14, PID: 42, Title: "Fragile", Visible: true})
	w.dieOnParent = true

	err := testEmbedder(fs).Embed(context.Background(), 0x14, testHost, winapi.Rect{})
	if !errors.Is(err, ErrEmbedSelfClosed) {
		t.Errorf("expected ErrEmbedSelfClosed, got %v", err)
	}
}

func TestEmbedder_DiesOnRestyle(t *testing.T) {
	quietLogger(t)
	fs := newFakeWindowSystem()
	w := fs.addWindow(winapi.WindowInfo{Handle: 0x15, PID: 42, Title: "Fragile", Visible: true})
	w.dieOnStyle = true

	err := testEmbedder(fs).Embed(context.Background(), 0x15, testHost, winapi.Rect{})
	if !errors.Is(err, ErrEmbedSelfClosed) {
		t.Errorf("expected ErrEmbedSelfClosed, got %v", err)
	}
}

func TestEmbedder_VanishesDuringVerification(t *testing.T) {
	quietLogger(t)
	fs := newFakeWindowSystem()
	w := fs.addWindow(winapi.WindowInfo{Handle: 0x16, PID: 42, Title: "Evasive", Visible: true})
	w.dieOnPosition = true

	err := testEmbedder(fs).Embed(context.Background(), 0x16, testHost, winapi.Rect{})
	if !errors.Is(err, ErrEmbedVanished) {
		t.Errorf("expected ErrEmbedVanished, got %v", err)
	}
	if errors.Is(err, ErrEmbedSelfClosed) {
		t.Error("verification failures must stay distinct from self-close failures")
	}
}

func TestEmbedder_ContextCancelDuringVerification(t *testing.T) {
	quietLogger(t)
	fs := newFakeWindowSystem()
	fs.addWindow(winapi.WindowInfo{Handle: 0x17, PID: 42, Title: "Slow", Visible: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := &embedder{ws: fs, verifyChecks: 3, verifyInterval: time.Hour}
	err := e.Embed(ctx, 0x17, testHost, winapi.Rect{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestEmbeddedStyles_RoundTrip(t *testing.T) {
	original := uint32(winapi.WS_CAPTION | winapi.WS_THICKFRAME | winapi.WS_MINIMIZEBOX |
		winapi.WS_MAXIMIZEBOX | winapi.WS_SYSMENU | winapi.WS_VISIBLE)
	embedded, _ := embeddedStyles(original, 0)
	restored := restoredStyles(embedded)

	if restored&winapi.WS_CHILD != 0 {
		t.Error("expected WS_CHILD cleared after restore")
	}
	for _, bit := range []uint32{winapi.WS_CAPTION, winapi.WS_THICKFRAME,
		winapi.WS_MINIMIZEBOX, winapi.WS_MAXIMIZEBOX, winapi.WS_SYSMENU} {
		if restored&bit == 0 {
			t.Errorf("expected style bit 0x%08X back after restore", bit)
		}
	}
}
