package normalize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ourday-app/ourday/internal/model"
)

func TestDocument_GarbageInputsNeverPanic(t *testing.T) {
	inputs := []any{
		nil,
		"a string",
		42.0,
		[]any{"not", "an", "object"},
		map[string]any{"days": "nope"},
		map[string]any{"days": map[string]any{"2024-05-01": nil}},
		map[string]any{"days": map[string]any{"2024-05-01": map[string]any{
			"users": map[string]any{"me": map[string]any{"tasks": []any{nil, 3.0, map[string]any{}}}},
		}}},
	}

	for _, input := range inputs {
		doc := Document(input)
		if doc == nil {
			t.Fatalf("Document(%v) returned nil", input)
		}
		if doc.Days == nil {
			t.Fatalf("Document(%v) returned nil days map", input)
		}
		if doc.Preferences.MorningReminderTimes[model.UserMe] == "" {
			t.Fatalf("Document(%v) lost morning reminder defaults", input)
		}
	}
}

func TestDocument_Idempotent(t *testing.T) {
	raw := map[string]any{
		"profile": "partner",
		"preferences": map[string]any{
			"calendarView":         "month",
			"morningReminderTimes": map[string]any{"me": "07:30", "partner": "10:00"},
		},
		"days": map[string]any{
			"2024-05-01": map[string]any{
				"closed":   true,
				"closedAt": "2024-05-02T00:00:05Z",
				"users": map[string]any{
					"me": map[string]any{
						"tasks": []any{
							map[string]any{
								"id":        "t1",
								"text":      "Walk the dog",
								"done":      true,
								"doneAt":    "2024-05-01T10:00:00Z",
								"createdAt": "2024-05-01T08:00:00Z",
								"reactions": map[string]any{
									"partner": map[string]any{"message": "Nice!", "sentAt": "2024-05-01T11:00:00Z"},
								},
							},
							// Truncation lands right on the word boundary here.
							map[string]any{
								"id":        "t2",
								"text":      strings.Repeat("a", model.MaxTaskTextChars-1) + " bb",
								"createdAt": "2024-05-01T08:30:00Z",
							},
						},
					},
				},
			},
		},
	}

	first := Document(raw)

	// Round-trip through JSON, the way the document travels, and
	// normalize again.
	data, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	second := Document(decoded)

	left, _ := json.Marshal(first)
	right, _ := json.Marshal(second)
	if string(left) != string(right) {
		t.Fatalf("normalization is not idempotent:\nfirst:  %s\nsecond: %s", left, right)
	}
}

func TestTask_LegacyStringUpgrade(t *testing.T) {
	task := Task("  Water   the plants  ")
	if task == nil {
		t.Fatal("legacy string task was dropped")
	}
	if task.Text != "Water the plants" {
		t.Fatalf("text = %q, want collapsed whitespace", task.Text)
	}
	if task.ID == "" {
		t.Fatal("legacy task got no id")
	}
	if task.Done {
		t.Fatal("legacy task should start open")
	}
	if task.Reactions[model.UserMe] == nil || task.Reactions[model.UserPartner] == nil {
		t.Fatal("legacy task missing reaction slots")
	}
}

func TestTask_EmptyTextDropped(t *testing.T) {
	if Task("   ") != nil {
		t.Fatal("whitespace-only legacy task survived")
	}
	if Task(map[string]any{"id": "t1", "text": "   "}) != nil {
		t.Fatal("whitespace-only task object survived")
	}
}

func TestTask_DoneAtClearedWhenNotDone(t *testing.T) {
	task := Task(map[string]any{
		"text":   "Run",
		"done":   false,
		"doneAt": "2024-05-01T10:00:00Z",
	})
	if task.DoneAt != "" {
		t.Fatalf("doneAt = %q, want cleared for open task", task.DoneAt)
	}
}

func TestTask_TextTruncatedToCap(t *testing.T) {
	long := ""
	for i := 0; i < 20; i++ {
		long += "abcde "
	}
	task := Task(map[string]any{"text": long})
	if got := len([]rune(task.Text)); got > model.MaxTaskTextChars {
		t.Fatalf("text length = %d, cap is %d", got, model.MaxTaskTextChars)
	}
}

func TestTask_TruncationAtWordBoundaryStaysClean(t *testing.T) {
	long := strings.Repeat("a", model.MaxTaskTextChars-1) + " bb"
	task := Task(map[string]any{"id": "t1", "text": long})
	if strings.HasSuffix(task.Text, " ") {
		t.Fatalf("truncated text keeps a trailing space: %q", task.Text)
	}

	again := Task(map[string]any{"id": "t1", "text": task.Text})
	if again.Text != task.Text {
		t.Fatalf("re-normalizing changed text: %q then %q", task.Text, again.Text)
	}
}

func TestDay_UnknownIdentitiesDropped(t *testing.T) {
	day := Day(map[string]any{
		"users": map[string]any{
			"me":       map[string]any{"tasks": []any{"Task A"}},
			"intruder": map[string]any{"tasks": []any{"Task B"}},
		},
	}, "2024-05-01")

	if len(day.Users) != 2 {
		t.Fatalf("users = %d, want exactly the two identities", len(day.Users))
	}
	if _, ok := day.Users["intruder"]; ok {
		t.Fatal("unknown identity survived normalization")
	}
	if len(day.Users[model.UserMe].Tasks) != 1 {
		t.Fatal("known identity's task was lost")
	}
}

func TestDay_ForcesDateKeyAndClosedAtRule(t *testing.T) {
	day := Day(map[string]any{
		"dateKey":  "1999-01-01",
		"closed":   false,
		"closedAt": "2024-05-02T00:00:05Z",
	}, "2024-05-01")

	if day.DateKey != "2024-05-01" {
		t.Fatalf("dateKey = %q, want the map key", day.DateKey)
	}
	if day.ClosedAt != "" {
		t.Fatal("closedAt should clear on an open day")
	}
}

func TestReactionEntry_LegacyStringIsMessageOnly(t *testing.T) {
	entry := ReactionEntry("Way to go!")
	if entry.Message != "Way to go!" {
		t.Fatalf("message = %q", entry.Message)
	}
	if entry.Image != nil {
		t.Fatal("legacy string reaction should carry no image")
	}
}

func TestReactionImage_RequiresImageDataURL(t *testing.T) {
	if img := ReactionImage(map[string]any{"dataUrl": "data:text/plain;base64,aGk="}); img != nil {
		t.Fatal("non-image data URL survived")
	}
	img := ReactionImage(map[string]any{"dataUrl": "data:image/png;base64,aGk="})
	if img == nil {
		t.Fatal("valid image dropped")
	}
	if img.MimeType != "image/jpeg" {
		t.Fatalf("mimeType = %q, want the default", img.MimeType)
	}
}

func TestReminderTime_RejectsMalformedClock(t *testing.T) {
	cases := map[any]string{
		"09:00":    "09:00",
		"9:00":     "",
		"0900":     "",
		"morning":  "",
		12.5:       "",
		"23:59":    "23:59",
		"24:00:00": "",
	}
	for input, want := range cases {
		if got := ReminderTime(input); got != want {
			t.Errorf("ReminderTime(%v) = %q, want %q", input, got, want)
		}
	}
}

func TestMorningReminderTimes_FallsBackPerIdentity(t *testing.T) {
	times := MorningReminderTimes(map[string]any{"me": "06:15", "partner": "bogus"})
	if times[model.UserMe] != "06:15" {
		t.Fatalf("me = %q", times[model.UserMe])
	}
	if times[model.UserPartner] != model.DefaultMorningReminderTime {
		t.Fatalf("partner = %q, want default", times[model.UserPartner])
	}
}

func TestCalendarView_FallsBackToWeek(t *testing.T) {
	if CalendarView("month") != model.ViewMonth {
		t.Fatal("valid view rejected")
	}
	if CalendarView("galaxy") != model.ViewWeek {
		t.Fatal("invalid view should fall back to week")
	}
}
