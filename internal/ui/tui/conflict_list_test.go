package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/adlift/adsync/internal/model"
)

func makeConflicted(name string) *model.Campaign {
	return &model.Campaign{
		SyncInfo: model.SyncInfo{
			LocalID:    "local-" + name,
			PlatformID: "platform-" + name,
			Status:     model.StatusActive,
			SyncStatus: model.SyncConflict,
			Conflict: &model.Conflict{
				DetectedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
				LocalStatus:    model.StatusActive,
				PlatformStatus: model.StatusPaused,
				Field:          "status",
			},
		},
		Name: name,
	}
}

func TestConflictListModel_FiltersUnconflicted(t *testing.T) {
	clean := &model.Campaign{
		SyncInfo: model.SyncInfo{LocalID: "local-clean", SyncStatus: model.SyncSynced},
		Name:     "clean",
	}
	m := NewConflictListModel([]*model.Campaign{makeConflicted("spring"), clean})

	if len(m.campaigns) != 1 {
		t.Fatalf("expected 1 conflicted campaign, got %d", len(m.campaigns))
	}
	if m.campaigns[0].Name != "spring" {
		t.Errorf("expected spring to remain, got %s", m.campaigns[0].Name)
	}
}

func TestConflictListModel_ViewShowsConflictColumns(t *testing.T) {
	m := NewConflictListModel([]*model.Campaign{makeConflicted("spring")})

	view := m.View()
	if !strings.Contains(view, "spring") {
		t.Errorf("expected campaign name in view")
	}
	if !strings.Contains(view, "Active") {
		t.Errorf("expected title-cased local status in view")
	}
	if !strings.Contains(view, "Paused") {
		t.Errorf("expected title-cased platform status in view")
	}
	if !strings.Contains(view, "0/1 decided") {
		t.Errorf("expected decision counter in view")
	}
}

func TestConflictListModel_ChoiceKeysRecordDirection(t *testing.T) {
	m := NewConflictListModel([]*model.Campaign{
		makeConflicted("spring"),
		makeConflicted("summer"),
	})

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	m = updated.(ConflictListModel)
	if m.choices["local-spring"] != ChoiceKeepLocal {
		t.Errorf("expected keep local for spring, got %q", m.choices["local-spring"])
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(ConflictListModel)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m = updated.(ConflictListModel)
	if m.choices["local-summer"] != ChoiceTakeRemote {
		t.Errorf("expected take remote for summer, got %q", m.choices["local-summer"])
	}
}

func TestConflictListModel_ConfirmRequiresAllDecided(t *testing.T) {
	m := NewConflictListModel([]*model.Campaign{
		makeConflicted("spring"),
		makeConflicted("summer"),
	})

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	m = updated.(ConflictListModel)
	if m.confirmMode {
		t.Fatal("expected confirm to be rejected with undecided campaigns")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	m = updated.(ConflictListModel)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(ConflictListModel)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	m = updated.(ConflictListModel)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	m = updated.(ConflictListModel)
	if !m.confirmMode {
		t.Fatal("expected confirm mode once every campaign has a direction")
	}
}

func TestConflictListModel_ApplyDropsSkips(t *testing.T) {
	m := NewConflictListModel([]*model.Campaign{
		makeConflicted("spring"),
		makeConflicted("summer"),
	})

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m = updated.(ConflictListModel)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(ConflictListModel)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	m = updated.(ConflictListModel)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	m = updated.(ConflictListModel)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	m = updated.(ConflictListModel)

	result := m.Result()
	if result.Action != ConflictActionResolve {
		t.Fatalf("expected resolve action, got %v", result.Action)
	}
	if len(result.Choices) != 1 {
		t.Fatalf("expected 1 applied choice, got %d", len(result.Choices))
	}
	if result.Choices["local-spring"] != ChoiceTakeRemote {
		t.Errorf("expected take remote for spring, got %q", result.Choices["local-spring"])
	}
	if _, ok := result.Choices["local-summer"]; ok {
		t.Error("expected skipped campaign to be absent from choices")
	}
}

func TestConflictListModel_BackCancels(t *testing.T) {
	m := NewConflictListModel([]*model.Campaign{makeConflicted("spring")})

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(ConflictListModel)
	if m.Result().Action != ConflictActionCancel {
		t.Errorf("expected cancel action, got %v", m.Result().Action)
	}
}

func TestRunConflictList_EmptyReturnsImmediately(t *testing.T) {
	result, err := RunConflictList(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != ConflictActionNone {
		t.Errorf("expected no action for empty input, got %v", result.Action)
	}
}
