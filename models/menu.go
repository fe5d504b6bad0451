package models

import "github.com/shopspring/decimal"

type MenuItem struct {
	ID                 string          `json:"id"`
	Category           string          `json:"category"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	Price              decimal.Decimal `json:"price"`
	Available          bool            `json:"available"`
	RequiresScheduling bool            `json:"requiresScheduling"`
	IsBox              bool            `json:"isBox"`
	BoxMinSize         int             `json:"boxMinSize,omitempty"`
	BoxComponents      []BoxComponent  `json:"boxComponents,omitempty"`
}

// BoxComponent is one selectable filling of a customizable box.
type BoxComponent struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

const (
	CategorySalgados = "salgados"
	CategoryDoces    = "doces"
	CategoryBebidas  = "bebidas"
	CategoryBoxes    = "boxes"
)

var MenuCategories = []string{CategorySalgados, CategoryDoces, CategoryBebidas, CategoryBoxes}
