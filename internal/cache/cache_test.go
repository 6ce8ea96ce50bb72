package cache

import (
	"errors"
	"testing"
)

func TestStore_GetSet(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		s := NewStore[string, string]()
		s.SetValidity(func(string) bool { return true })

		s.Set("key", "value")

		val, err := s.Get("key")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if val != "value" {
			t.Errorf("Get() = %v, want %v", val, "value")
		}
	})

	t.Run("missing key", func(t *testing.T) {
		s := NewStore[string, string]()
		s.SetValidity(func(string) bool { return true })

		_, err := s.Get("missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("rejected by predicate", func(t *testing.T) {
		s := NewStore[string, string]()
		s.SetValidity(func(string) bool { return false })

		s.Set("key", "value")

		_, err := s.Get("key")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("no predicate installed", func(t *testing.T) {
		s := NewStore[string, string]()
		s.Set("key", "value")

		_, err := s.Get("key")
		if !errors.Is(err, ErrNoValidity) {
			t.Errorf("Get() error = %v, want ErrNoValidity", err)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		s := NewStore[string, int]()
		s.SetValidity(func(string) bool { return true })

		s.Set("key", 1)
		s.Set("key", 2)

		val, err := s.Get("key")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if val != 2 {
			t.Errorf("Get() = %d, want 2", val)
		}
		if s.Len() != 1 {
			t.Errorf("Len() = %d, want 1", s.Len())
		}
	})
}

func TestStore_Delete(t *testing.T) {
	s := NewStore[string, string]()
	s.SetValidity(func(string) bool { return true })

	s.Set("key", "value")
	s.Delete("key")

	if _, err := s.Get("key"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}

	// Deleting an absent key must not fail.
	s.Delete("missing")
}

func TestStore_Clear(t *testing.T) {
	s := NewStore[string, string]()
	s.SetValidity(func(string) bool { return true })

	s.Set("key1", "value1")
	s.Set("key2", "value2")

	s.Clear()

	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestStore_Describe(t *testing.T) {
	s := NewStore[string, string]()
	s.Set("key", "value")

	if s.Describe() == "" {
		t.Error("Describe() returned empty string")
	}
}
