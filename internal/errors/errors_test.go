package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestGrabError_Error(t *testing.T) {
	err := &GrabError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "capture not found",
	}

	expected := "NOT_FOUND: capture not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("box has zero area")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "box has zero area" {
		t.Errorf("Message = %q, want %q", err.Message, "box has zero area")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("42")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "42" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "42")
	}
}

func TestNewConfig(t *testing.T) {
	err := NewConfig("GEMINI_API_KEY", "api key is not set")

	if err.Code != ErrConfig {
		t.Errorf("Code = %q, want %q", err.Code, ErrConfig)
	}
	if err.Details["setting"] != "GEMINI_API_KEY" {
		t.Errorf("Details[setting] = %v", err.Details["setting"])
	}
}

func TestNewCaptureFailed_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewCaptureFailed("artifact write", cause)

	if err.Code != ErrCaptureFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrCaptureFailed)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if err.Details["stage"] != "artifact write" {
		t.Errorf("Details[stage] = %v", err.Details["stage"])
	}
}

func TestNewRecognitionFailed(t *testing.T) {
	err := NewRecognitionFailed("gemini", fmt.Errorf("quota exceeded"))

	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
	if err.Message != "text recognition via gemini failed: quota exceeded" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewStore_NilCause(t *testing.T) {
	err := NewStore(nil)

	if err.Message != "result store unavailable" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Unwrap() != nil {
		t.Error("expected nil cause")
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("something broke"))

	if err.Code != ErrInternal {
		t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
	}
	if err.Message != "something broke" {
		t.Errorf("Message = %q, want %q", err.Message, "something broke")
	}

	if NewInternal(nil).Message != "internal error" {
		t.Error("expected default message for nil error")
	}
}

func TestIs(t *testing.T) {
	err := NewBusy()

	if !Is(err, ErrBusy) {
		t.Error("Is(err, ErrBusy) = false, want true")
	}
	if Is(err, ErrNotFound) {
		t.Error("Is(err, ErrNotFound) = true, want false")
	}

	wrapped := fmt.Errorf("context: %w", err)
	if !Is(wrapped, ErrBusy) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}

	if Is(fmt.Errorf("plain"), ErrInternal) {
		t.Error("Is on a plain error should be false")
	}
}

func TestAs(t *testing.T) {
	if got := As(NewBusy()); got.Code != ErrBusy {
		t.Errorf("As kept code %q, want %q", got.Code, ErrBusy)
	}
	if got := As(fmt.Errorf("boom")); got.Code != ErrInternal {
		t.Errorf("As on plain error = %q, want %q", got.Code, ErrInternal)
	}
}
