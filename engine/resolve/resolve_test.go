package resolve

import (
	"errors"
	"testing"

	"github.com/nathoo/wayfarer/types"
)

func here() []types.Entity {
	return []types.Entity{
		{Handle: 3, TemplateID: "green_slime", Name: "Green Slime", Kind: types.EntityMonster},
		{Handle: 1, TemplateID: "green_slime", Name: "Green Slime", Kind: types.EntityMonster},
		{Handle: 2, TemplateID: "elder", Name: "Village Elder", Kind: types.EntityNPC},
		{Handle: 4, TemplateID: "blue_slime", Name: "Blue Slime", Kind: types.EntityMonster},
		{Handle: 5, TemplateID: "rusty_key", Name: "Rusty Key", Kind: types.EntityItem},
	}
}

func TestEntity_ExactName(t *testing.T) {
	e, err := Entity(here(), "village elder")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Handle != 2 {
		t.Errorf("handle = %d, want 2", e.Handle)
	}
}

func TestEntity_TemplateIDAndUnderscores(t *testing.T) {
	for _, name := range []string{"rusty_key", "Rusty Key", "rusty key"} {
		e, err := Entity(here(), name)
		if err != nil || e.Handle != 5 {
			t.Errorf("Entity(%q) = %d, %v", name, e.Handle, err)
		}
	}
}

func TestEntity_SameTemplatePicksLowestHandle(t *testing.T) {
	e, err := Entity(here(), "green slime")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Handle != 1 {
		t.Errorf("handle = %d, want 1", e.Handle)
	}
}

func TestEntity_PartialWord(t *testing.T) {
	e, err := Entity(here(), "elder")
	if err != nil || e.Handle != 2 {
		t.Errorf("got %d, %v", e.Handle, err)
	}
}

func TestEntity_Ambiguous(t *testing.T) {
	_, err := Entity(here(), "slime")
	var amb *AmbiguityError
	if !errors.As(err, &amb) {
		t.Fatalf("expected AmbiguityError, got %v", err)
	}
	if len(amb.Candidates) != 2 {
		t.Errorf("candidates = %v", amb.Candidates)
	}
}

func TestEntity_NotFound(t *testing.T) {
	_, err := Entity(here(), "dragon")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if _, err := Entity(here(), "  "); err == nil {
		t.Error("blank name resolved")
	}
}

func TestItem(t *testing.T) {
	inv := []types.Item{
		{ID: "health_potion", Name: "Health Potion", Quantity: 2},
		{ID: "mana_potion", Name: "Mana Potion", Quantity: 1},
		{ID: "iron_sword", Name: "Iron Sword", Quantity: 1},
	}

	it, err := Item(inv, "health potion")
	if err != nil || it.ID != "health_potion" {
		t.Errorf("got %q, %v", it.ID, err)
	}
	it, err = Item(inv, "sword")
	if err != nil || it.ID != "iron_sword" {
		t.Errorf("got %q, %v", it.ID, err)
	}

	var amb *AmbiguityError
	if _, err := Item(inv, "potion"); !errors.As(err, &amb) {
		t.Errorf("expected AmbiguityError, got %v", err)
	}
	var nf *NotFoundError
	if _, err := Item(inv, "shield"); !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}
