package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Ingredient is one component of a drink recipe
type Ingredient struct {
	Name  string `json:"name" validate:"required,max=80"`
	Color string `json:"color" validate:"required,max=40"`
	Parts int    `json:"parts" validate:"gte=1,lte=100"`
}

// ShortIngredient is the public view of an ingredient (no name)
type ShortIngredient struct {
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

// Recipe is an ordered ingredient list. When decoding it also accepts a
// single ingredient object, which is treated as a one-entry recipe.
type Recipe []Ingredient

// UnmarshalJSON implements json.Unmarshaler
func (r *Recipe) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var one Ingredient
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return err
		}
		*r = Recipe{one}
		return nil
	}

	var many []Ingredient
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return err
	}
	*r = many
	return nil
}

// Drink represents a menu item
type Drink struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Recipe    Recipe    `json:"recipe" db:"recipe"`
	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// TableName returns the table name for the Drink model
func (Drink) TableName() string {
	return "drinks"
}

// NewDrink creates a new Drink instance
func NewDrink(title string, recipe Recipe) *Drink {
	now := time.Now().UTC()
	return &Drink{
		Title:     title,
		Recipe:    recipe,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ShortDrink is the public representation of a drink
type ShortDrink struct {
	ID     int64             `json:"id"`
	Title  string            `json:"title"`
	Recipe []ShortIngredient `json:"recipe"`
}

// LongDrink is the detailed representation of a drink
type LongDrink struct {
	ID     int64        `json:"id"`
	Title  string       `json:"title"`
	Recipe []Ingredient `json:"recipe"`
}

// Short returns the public view, hiding ingredient names
func (d *Drink) Short() ShortDrink {
	recipe := make([]ShortIngredient, 0, len(d.Recipe))
	for _, ing := range d.Recipe {
		recipe = append(recipe, ShortIngredient{Color: ing.Color, Parts: ing.Parts})
	}
	return ShortDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}

// Long returns the detailed view
func (d *Drink) Long() LongDrink {
	recipe := make([]Ingredient, len(d.Recipe))
	copy(recipe, d.Recipe)
	return LongDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}

// EncodeRecipe serializes the recipe for the recipe TEXT column
func (d *Drink) EncodeRecipe() (string, error) {
	recipe := d.Recipe
	if recipe == nil {
		recipe = Recipe{}
	}
	b, err := json.Marshal([]Ingredient(recipe))
	if err != nil {
		return "", fmt.Errorf("failed to encode recipe: %w", err)
	}
	return string(b), nil
}

// DecodeRecipe loads the recipe from its stored form
func (d *Drink) DecodeRecipe(stored string) error {
	var recipe Recipe
	if stored == "" {
		d.Recipe = Recipe{}
		return nil
	}
	if err := json.Unmarshal([]byte(stored), &recipe); err != nil {
		return fmt.Errorf("failed to decode recipe: %w", err)
	}
	d.Recipe = recipe
	return nil
}

// DrinkInput is the body accepted when creating a drink
type DrinkInput struct {
	Title  string `json:"title" validate:"required,min=1,max=80"`
	Recipe Recipe `json:"recipe" validate:"required,min=1,dive"`
}

// DrinkPatch is the body accepted when updating a drink. Nil fields are left
// unchanged.
type DrinkPatch struct {
	Title  *string `json:"title,omitempty" validate:"omitempty,min=1,max=80"`
	Recipe Recipe  `json:"recipe,omitempty" validate:"omitempty,min=1,dive"`
}

// IsEmpty reports whether the patch changes nothing
func (p *DrinkPatch) IsEmpty() bool {
	return (p.Title == nil || *p.Title == "") && len(p.Recipe) == 0
}
