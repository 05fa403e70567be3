package service

import (
	"strings"
	"testing"

	"github.com/helpline/support-desk/internal/domain"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

func TestAddNoteRejectsBlankText(t *testing.T) {
	h := newHarness(t, defaultPolicy())
	ticket := h.submit()

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := h.notes.AddNote(h.ctx, h.agentActor, ticket.ID, text)
		if !apperrors.IsCode(err, apperrors.CodeValidation) {
			t.Fatalf("text %q: expected VALIDATION_FAILED, got %v", text, err)
		}
	}
	notes, _ := h.store.Notes().ListByTicket(h.ctx, ticket.ID)
	if len(notes) != 0 {
		t.Fatalf("blank notes must not persist")
	}
	if h.reload(ticket.ID).UpdatedAt != nil {
		t.Fatalf("blank note must not touch the ticket")
	}

	long := strings.Repeat("a", MaxNoteLength+1)
	if _, err := h.notes.AddNote(h.ctx, h.agentActor, ticket.ID, long); !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_FAILED for long note, got %v", err)
	}
}

func TestNotesListInOrderWithAuthorNames(t *testing.T) {
	h := newHarness(t, defaultPolicy())
	ticket := h.submit()

	texts := []string{"first", "second", "third"}
	for i, text := range texts {
		actor := h.agentActor
		if i == 1 {
			actor = h.adminActor
		}
		note, err := h.notes.AddNote(h.ctx, actor, ticket.ID, "  "+text+"  ")
		if err != nil {
			t.Fatalf("add %s: %v", text, err)
		}
		if note.Note != text {
			t.Fatalf("note must be trimmed, got %q", note.Note)
		}
		if !h.reload(ticket.ID).UpdatedAt.Equal(note.CreatedAt) {
			t.Fatalf("updated_at must match the note timestamp")
		}
	}

	notes, err := h.notes.ListNotes(h.ctx, h.agentActor, ticket.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notes) != len(texts) {
		t.Fatalf("expected %d notes, got %d", len(texts), len(notes))
	}
	for i := range notes {
		if notes[i].Note != texts[i] {
			t.Fatalf("position %d: expected %q, got %q", i, texts[i], notes[i].Note)
		}
		if i > 0 && !notes[i].CreatedAt.After(notes[i-1].CreatedAt) {
			t.Fatalf("notes must be strictly ordered by created_at")
		}
	}
	if notes[1].AuthorName != h.admin.Name || notes[0].AuthorName != h.agent.Name {
		t.Fatalf("unexpected author names %q %q", notes[0].AuthorName, notes[1].AuthorName)
	}

	if err := h.store.Staff().Delete(h.ctx, h.agent.ID); err != nil {
		t.Fatalf("delete staff: %v", err)
	}
	notes, _ = h.notes.ListNotes(h.ctx, h.adminActor, ticket.ID)
	if notes[0].AuthorName != domain.UnknownStaffName || notes[0].AuthorID != h.agent.ID {
		t.Fatalf("deleted author must read as Unknown, got %+v", notes[0])
	}
}

func TestAddNoteRequiresActiveAuthorAndTicket(t *testing.T) {
	h := newHarness(t, defaultPolicy())
	ticket := h.submit()
	inactive := h.seedStaff("Ina Active", "ina@example.com", domain.StaffRoleCallCentre, domain.StaffStatusInactive)

	_, err := h.notes.AddNote(h.ctx, domain.Actor{ID: inactive.ID, Role: inactive.Role}, ticket.ID, "hello")
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	_, err = h.notes.AddNote(h.ctx, domain.Actor{ID: "ghost", Role: domain.StaffRoleCallCentre}, ticket.ID, "hello")
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for unknown author, got %v", err)
	}
	_, err = h.notes.AddNote(h.ctx, h.agentActor, "missing", "hello")
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for unknown ticket, got %v", err)
	}
	if _, err := h.notes.ListNotes(h.ctx, h.agentActor, "missing"); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND listing unknown ticket, got %v", err)
	}
}

func TestNotePreviewTruncates(t *testing.T) {
	short := "short note"
	if preview(short) != short {
		t.Fatalf("short notes are not truncated")
	}
	long := strings.Repeat("é", 100)
	got := preview(long)
	if len([]rune(got)) != previewLength+1 {
		t.Fatalf("expected %d runes, got %d", previewLength+1, len([]rune(got)))
	}
}
