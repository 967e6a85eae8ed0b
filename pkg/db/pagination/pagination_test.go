package pagination

import (
	"strconv"
	"testing"
)

func TestPaginationSize(t *testing.T) {
	cases := map[int]int{0: DefaultPageSize, -3: DefaultPageSize, 5: 5, 1000: MaxPageSize}
	for in, want := range cases {
		if got := (Pagination{PageSize: in}).Size(); got != want {
			t.Fatalf("size(%d): expected %d, got %d", in, want, got)
		}
	}
}

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "1784321"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cursor, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cursor.ID != "1784321" {
		t.Fatalf("expected id 1784321, got %q", cursor.ID)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	if cursor, err := DecodeCursor(""); err != nil || cursor != nil {
		t.Fatalf("expected nil cursor for empty token, got %v %v", cursor, err)
	}
	if _, err := DecodeCursor("%%%"); err != ErrInvalidPageToken {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}

func TestBuildCursorPage(t *testing.T) {
	rows := []int{9, 8, 7}
	id := func(v int) string { return strconv.Itoa(v) }

	page, info, err := BuildCursorPage(rows, 2, id)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(page) != 2 || !info.HasMore {
		t.Fatalf("expected 2 rows with more, got %d rows has_more=%v", len(page), info.HasMore)
	}
	cursor, err := DecodeCursor(info.NextPageToken)
	if err != nil || cursor.ID != "8" {
		t.Fatalf("expected cursor 8, got %v %v", cursor, err)
	}

	page, info, err = BuildCursorPage(rows, 3, id)
	if err != nil || len(page) != 3 || info.HasMore || info.NextPageToken != "" {
		t.Fatalf("expected final page, got %d rows %+v %v", len(page), info, err)
	}
}
