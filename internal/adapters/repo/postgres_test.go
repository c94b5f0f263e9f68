package repo

import "testing"

func TestEncodeMetadata(t *testing.T) {
	if encodeMetadata(nil) != nil {
		t.Fatalf("пустые метаданные должны давать NULL")
	}
	if encodeMetadata(map[string]any{"bad": make(chan int)}) != nil {
		t.Fatalf("несериализуемые метаданные должны давать NULL")
	}
	if got := string(encodeMetadata(map[string]any{"rating": "5"})); got != `{"rating":"5"}` {
		t.Fatalf("неожиданный JSON: %s", got)
	}
}

func TestNullString(t *testing.T) {
	if nullString("").Valid {
		t.Fatalf("пустая строка должна быть NULL")
	}
	if v := nullString("u1"); !v.Valid || v.String != "u1" {
		t.Fatalf("неожиданное значение: %+v", v)
	}
}
