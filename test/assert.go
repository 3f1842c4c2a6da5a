package test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func AssertEqual[T comparable](t *testing.T, expected, actual T) bool {
	t.Helper()

	if expected != actual {
		t.Errorf(""+
			"Not equal: \n"+
			"Expected: %v\n"+
			"Actual: %v", expected, actual)
		return false
	}

	return true
}

func AssertTrue(t *testing.T, value bool, msg string) bool {
	t.Helper()

	if !value {
		t.Errorf("Expected true: %s", msg)
		return false
	}

	return true
}

func AssertBytes(t *testing.T, expected, actual []byte) bool {
	t.Helper()

	if !bytes.Equal(expected, actual) {
		t.Errorf(""+
			"Bytes not equal: \n"+
			"Expected: %q\n"+
			"Actual: %q", expected, actual)
		return false
	}

	return true
}

func AssertContains(t *testing.T, haystack, needle string) bool {
	t.Helper()

	if !strings.Contains(haystack, needle) {
		t.Errorf("Expected %q to contain %q", haystack, needle)
		return false
	}

	return true
}

func AssertNotContains(t *testing.T, haystack, needle string) bool {
	t.Helper()

	if strings.Contains(haystack, needle) {
		t.Errorf("Expected %q not to contain %q", haystack, needle)
		return false
	}

	return true
}

func AssertNoError(t *testing.T, err error) bool {
	t.Helper()

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
		return false
	}

	return true
}

func AssertErrorIs(t *testing.T, err, target error) bool {
	t.Helper()

	if !errors.Is(err, target) {
		t.Errorf(""+
			"Error mismatch: \n"+
			"Expected: %v\n"+
			"Actual: %v", target, err)
		return false
	}

	return true
}
