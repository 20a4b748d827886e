package env

import (
	"testing"
	"time"
)

func TestStringDefault(t *testing.T) {
	if got := String("DISTQUAL_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("String() = %q, want fallback", got)
	}
	t.Setenv("DISTQUAL_TEST_SET", "value")
	if got := String("DISTQUAL_TEST_SET", "fallback"); got != "value" {
		t.Fatalf("String() = %q, want value", got)
	}
}

func TestRequire(t *testing.T) {
	if _, err := Require("DISTQUAL_TEST_UNSET"); err == nil {
		t.Fatalf("Require() expected error for unset key")
	}
	t.Setenv("DISTQUAL_TEST_BLANK", "   ")
	if _, err := Require("DISTQUAL_TEST_BLANK"); err == nil {
		t.Fatalf("Require() expected error for blank key")
	}
	t.Setenv("DISTQUAL_TEST_HOME", "/opt/hadoop")
	v, err := Require("DISTQUAL_TEST_HOME")
	if err != nil {
		t.Fatalf("Require() err=%v", err)
	}
	if v != "/opt/hadoop" {
		t.Fatalf("Require() = %q, want /opt/hadoop", v)
	}
}

func TestDuration(t *testing.T) {
	d, err := Duration("DISTQUAL_TEST_UNSET", 5*time.Second)
	if err != nil {
		t.Fatalf("Duration() err=%v", err)
	}
	if d != 5*time.Second {
		t.Fatalf("Duration() = %v, want 5s", d)
	}
	t.Setenv("DISTQUAL_TEST_DUR", "90s")
	d, err = Duration("DISTQUAL_TEST_DUR", 0)
	if err != nil {
		t.Fatalf("Duration() err=%v", err)
	}
	if d != 90*time.Second {
		t.Fatalf("Duration() = %v, want 90s", d)
	}
	t.Setenv("DISTQUAL_TEST_DUR_BAD", "soon")
	if _, err := Duration("DISTQUAL_TEST_DUR_BAD", 0); err == nil {
		t.Fatalf("Duration() expected parse error")
	}
}

func TestInt(t *testing.T) {
	t.Setenv("DISTQUAL_TEST_INT", "12")
	i, err := Int("DISTQUAL_TEST_INT", 0)
	if err != nil {
		t.Fatalf("Int() err=%v", err)
	}
	if i != 12 {
		t.Fatalf("Int() = %d, want 12", i)
	}
	t.Setenv("DISTQUAL_TEST_INT_BAD", "twelve")
	if _, err := Int("DISTQUAL_TEST_INT_BAD", 0); err == nil {
		t.Fatalf("Int() expected parse error")
	}
}
