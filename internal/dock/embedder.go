package dock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/windock/windock/internal/winapi"
)

// embedder runs the staged reparenting protocol. The stages are deliberate:
// collapsing the parent/style/position changes into fewer calls makes more
// applications notice the takeover and exit defensively, and the interleaved
// aliveness checks isolate which manipulation a given application objected
// to. Do not merge the stages.
type embedder struct {
	ws             WindowSystem
	verifyChecks   int
	verifyInterval time.Duration
}

// Embed reparents child into host at r. The window must be alive at every
// stage; a vanish before the final burst is ErrEmbedSelfClosed, during the
// burst ErrEmbedVanished.
func (e *embedder) Embed(ctx context.Context, child, host winapi.HWND, r winapi.Rect) error {
	if !e.ws.IsWindow(child) {
		return fmt.Errorf("%w: before reparenting", ErrEmbedSelfClosed)
	}

	// Applications refuse reparenting of hidden or minimized windows, so
	// surface the window first.
	if err := e.ws.ShowWindow(child, true); err != nil {
		return fmt.Errorf("surface window %s: %v", child, err)
	}
	e.ws.RaiseWindow(child)

	if err := e.ws.SetParent(child, host); err != nil {
		if errors.Is(err, winapi.ErrReparentRefused) {
			return fmt.Errorf("%w: %v", ErrEmbedRefused, err)
		}
		return fmt.Errorf("reparent window %s: %w", child, err)
	}

	if !e.ws.IsWindow(child) {
		return fmt.Errorf("%w: immediately after reparenting", ErrEmbedSelfClosed)
	}

	style, exStyle := e.ws.WindowStyles(child)
	style, exStyle = embeddedStyles(style, exStyle)
	if err := e.ws.SetWindowStyles(child, style, exStyle); err != nil {
		return fmt.Errorf("restyle window %s: %w", child, err)
	}

	// Independent check from the post-reparent one: some applications only
	// bail once their frame styles change.
	if !e.ws.IsWindow(child) {
		return fmt.Errorf("%w: after style change", ErrEmbedSelfClosed)
	}

	if err := e.ws.PositionWindow(child, r, true); err != nil {
		return fmt.Errorf("position window %s: %w", child, err)
	}

	// Some applications delay their defensive exit past the reparent
	// itself, so success is only declared after a short observation burst.
	for i := 0; i < e.verifyChecks; i++ {
		if !sleepCtx(ctx, e.verifyInterval) {
			return ctx.Err()
		}
		if !e.ws.IsWindow(child) {
			return fmt.Errorf("%w: verification check %d of %d",
				ErrEmbedVanished, i+1, e.verifyChecks)
		}
	}

	e.ws.RedrawWindow(child)
	return nil
}

// embeddedStyles converts top-level styling to embedded-child styling.
// The caption is preserved when the window already had one; stripping it
// destabilizes apps that draw into their frame, while a plain border keeps
// captionless windows visually separated from the host.
func embeddedStyles(style, exStyle uint32) (uint32, uint32) {
	hadCaption := style&winapi.WS_CAPTION != 0
	style &^= winapi.WS_THICKFRAME | winapi.WS_MINIMIZEBOX | winapi.WS_MAXIMIZEBOX |
		winapi.WS_SYSMENU | winapi.WS_POPUP
	style |= winapi.WS_CHILD | winapi.WS_VISIBLE
	if hadCaption {
		style |= winapi.WS_CAPTION | winapi.WS_BORDER
	} else {
		style |= winapi.WS_BORDER
	}
	exStyle &^= winapi.WS_EX_DLGMODALFRAME | winapi.WS_EX_WINDOWEDGE |
		winapi.WS_EX_CLIENTEDGE | winapi.WS_EX_STATICEDGE
	return style, exStyle
}

// restoredStyles reverses embeddedStyles for a window going back to the
// desktop on close.
func restoredStyles(style uint32) uint32 {
	style &^= winapi.WS_CHILD
	style |= winapi.WS_CAPTION | winapi.WS_THICKFRAME | winapi.WS_MINIMIZEBOX |
		winapi.WS_MAXIMIZEBOX | winapi.WS_SYSMENU
	return style
}
