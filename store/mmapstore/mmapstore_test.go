package mmapstore

import "context"
import "testing"

import "github.com/sirgallo/mavl"


func nb(t *testing.T, s string) mavl.NonEmptyBytes {
	t.Helper()

	v, ok := mavl.NewNonEmptyBytes([]byte(s))
	if ! ok { t.Fatalf("expected non-empty bytes for %q", s) }

	return v
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(Options{ Filepath: t.TempDir(), FileName: "mavl.log" })
	if err != nil { t.Fatalf("open: %s", err) }

	t.Cleanup(func() {
		if err := s.Close(); err != nil { t.Errorf("close: %s", err) }
	})

	return s
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Insert And Get", func(t *testing.T) {
		s := openTestStore(t)

		existed, err := s.Insert(ctx, nb(t, "b"), nb(t, "bee"))
		if err != nil { t.Fatalf("insert: %s", err) }
		if existed { t.Errorf("expected no prior entry") }

		value, ok, err := s.Get(ctx, nb(t, "b"))
		if err != nil { t.Fatalf("get: %s", err) }
		if ! ok || string(value.Bytes()) != "bee" { t.Errorf("unexpected get result: %v %v", ok, value) }
	})

	t.Run("Insert Overwrite Reports Existed", func(t *testing.T) {
		s := openTestStore(t)

		s.Insert(ctx, nb(t, "k"), nb(t, "v1"))
		existed, err := s.Insert(ctx, nb(t, "k"), nb(t, "v2"))
		if err != nil { t.Fatalf("insert: %s", err) }
		if ! existed { t.Errorf("expected existed == true on overwrite") }

		value, _, _ := s.Get(ctx, nb(t, "k"))
		if string(value.Bytes()) != "v2" { t.Errorf("expected overwritten value, got %q", value.Bytes()) }
	})

	t.Run("Remove", func(t *testing.T) {
		s := openTestStore(t)
		s.Insert(ctx, nb(t, "x"), nb(t, "y"))

		existed, err := s.Remove(ctx, nb(t, "x"))
		if err != nil { t.Fatalf("remove: %s", err) }
		if ! existed { t.Errorf("expected existed == true") }

		_, ok, _ := s.Get(ctx, nb(t, "x"))
		if ok { t.Errorf("expected key removed") }
	})

	t.Run("Remove Missing Reports Not Existed", func(t *testing.T) {
		s := openTestStore(t)

		existed, err := s.Remove(ctx, nb(t, "never-inserted"))
		if err != nil { t.Fatalf("remove: %s", err) }
		if existed { t.Errorf("expected existed == false") }
	})

	t.Run("Iter Ascending", func(t *testing.T) {
		s := openTestStore(t)
		for _, k := range []string{ "c", "a", "b" } {
			s.Insert(ctx, nb(t, k), nb(t, k))
		}

		cur, err := s.Iter(ctx, mavl.NonEmptyBytes{}, mavl.NonEmptyBytes{})
		if err != nil { t.Fatalf("iter: %s", err) }
		defer cur.Close()

		var got []string
		for {
			kv, ok, err := cur.Next()
			if err != nil { t.Fatalf("next: %s", err) }
			if ! ok { break }
			got = append(got, string(kv.Key.Bytes()))
		}

		want := []string{ "a", "b", "c" }
		if len(got) != len(want) { t.Fatalf("got %v, want %v", got, want) }
		for i := range want {
			if got[i] != want[i] { t.Fatalf("got %v, want %v", got, want) }
		}
	})

	t.Run("Reverse Iter Descending", func(t *testing.T) {
		s := openTestStore(t)
		for _, k := range []string{ "c", "a", "b" } {
			s.Insert(ctx, nb(t, k), nb(t, k))
		}

		cur, err := s.ReverseIter(ctx, mavl.NonEmptyBytes{}, mavl.NonEmptyBytes{})
		if err != nil { t.Fatalf("reverse iter: %s", err) }
		defer cur.Close()

		var got []string
		for {
			kv, ok, err := cur.Next()
			if err != nil { t.Fatalf("next: %s", err) }
			if ! ok { break }
			got = append(got, string(kv.Key.Bytes()))
		}

		want := []string{ "c", "b", "a" }
		if len(got) != len(want) { t.Fatalf("got %v, want %v", got, want) }
		for i := range want {
			if got[i] != want[i] { t.Fatalf("got %v, want %v", got, want) }
		}
	})

	t.Run("Resize Across Many Inserts", func(t *testing.T) {
		s := openTestStore(t)

		for i := 0; i < 5000; i++ {
			k := nb(t, string(rune('a'+(i%26)))+string(rune(i)))
			if _, err := s.Insert(ctx, k, nb(t, "value")); err != nil { t.Fatalf("insert %d: %s", i, err) }
		}
	})
}

func TestStoreReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(Options{ Filepath: dir, FileName: "mavl.log" })
	if err != nil { t.Fatalf("open: %s", err) }

	s.Insert(ctx, nb(t, "a"), nb(t, "1"))
	s.Insert(ctx, nb(t, "b"), nb(t, "2"))
	s.Remove(ctx, nb(t, "a"))

	if err := s.Close(); err != nil { t.Fatalf("close: %s", err) }

	reopened, err := Open(Options{ Filepath: dir, FileName: "mavl.log" })
	if err != nil { t.Fatalf("reopen: %s", err) }
	defer reopened.Close()

	_, ok, err := reopened.Get(ctx, nb(t, "a"))
	if err != nil { t.Fatalf("get a: %s", err) }
	if ok { t.Errorf("expected tombstoned key to stay removed across reopen") }

	value, ok, err := reopened.Get(ctx, nb(t, "b"))
	if err != nil { t.Fatalf("get b: %s", err) }
	if ! ok || string(value.Bytes()) != "2" { t.Errorf("expected replayed value for b, got %v %v", ok, value) }
}

func TestStoreCompact(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, k := range []string{ "a", "b", "c", "d" } {
		s.Insert(ctx, nb(t, k), nb(t, k))
	}

	s.Insert(ctx, nb(t, "b"), nb(t, "b2"))
	s.Remove(ctx, nb(t, "c"))

	beforeOffset := s.nextOffset

	if err := s.Compact(); err != nil { t.Fatalf("compact: %s", err) }

	if s.nextOffset >= beforeOffset { t.Errorf("expected compact to shrink the log, before %d after %d", beforeOffset, s.nextOffset) }
	if len(s.index) != 3 { t.Fatalf("expected 3 live entries after compact, got %d", len(s.index)) }

	value, ok, err := s.Get(ctx, nb(t, "b"))
	if err != nil { t.Fatalf("get b: %s", err) }
	if ! ok || string(value.Bytes()) != "b2" { t.Errorf("expected compacted value for b, got %v %v", ok, value) }

	_, ok, err = s.Get(ctx, nb(t, "c"))
	if err != nil { t.Fatalf("get c: %s", err) }
	if ok { t.Errorf("expected c to remain removed after compact") }

	for _, k := range []string{ "a", "d" } {
		_, ok, err := s.Get(ctx, nb(t, k))
		if err != nil { t.Fatalf("get %s: %s", k, err) }
		if ! ok { t.Errorf("expected %s to survive compact", k) }
	}
}
