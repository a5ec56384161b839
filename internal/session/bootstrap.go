// Package session starts the AR session and runs the per-frame placement loop.
package session

import (
	"context"
	"errors"
	"fmt"
)

// ModeImmersiveAR is the only session mode this app requests.
const ModeImmersiveAR = "immersive-ar"

// RequiredFeatures must be granted by the platform.
var RequiredFeatures = []string{"hit-test"}

// ErrUnsupported is returned by Bootstrap when the platform has no AR support.
var ErrUnsupported = errors.New("session: immersive-ar not supported")

// Platform is the host's AR capability surface.
type Platform interface {
	IsSessionSupported(ctx context.Context, mode string) (bool, error)
	RequestSession(ctx context.Context, mode string, requiredFeatures []string) error
	ShowMessage(lines []string)
}

// Messages are the texts shown before the session starts.
type Messages struct {
	Intro       []string
	Unsupported []string
}

// DefaultMessages returns the stock texts.
func DefaultMessages() Messages {
	return Messages{
		Intro: []string{
			"Welcome!",
			"Press the button below to enter the AR experience.",
			"Note: The app works best in a well lit environment, with enough space to move around.",
		},
		Unsupported: []string{
			"Oh no!",
			"Your browser does not seem to support augmented reality with WebXR.",
			"Try opening the page using a recent version of Chrome on Android.",
		},
	}
}

// Bootstrap checks for immersive-ar support and requests a session with
// hit-testing. Without support it shows the unsupported message and returns
// ErrUnsupported; otherwise it shows the intro before requesting.
func Bootstrap(ctx context.Context, p Platform, msgs Messages) error {
	ok, err := p.IsSessionSupported(ctx, ModeImmersiveAR)
	if err != nil {
		p.ShowMessage(msgs.Unsupported)
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if !ok {
		p.ShowMessage(msgs.Unsupported)
		return ErrUnsupported
	}
	p.ShowMessage(msgs.Intro)
	if err := p.RequestSession(ctx, ModeImmersiveAR, RequiredFeatures); err != nil {
		return fmt.Errorf("session: request: %w", err)
	}
	return nil
}
