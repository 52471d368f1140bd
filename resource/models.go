package resource

import (
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Product struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Category           string   `json:"category"`
	Price              float64  `json:"price"`
	DiscountPercentage float64  `json:"discountPercentage,omitempty"`
	Rating             float64  `json:"rating"`
	Stock              int      `json:"stock"`
	Brand              string   `json:"brand,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	Thumbnail          string   `json:"thumbnail,omitempty"`

	IsDeleted bool   `json:"isDeleted,omitempty"`
	DeletedOn string `json:"deletedOn,omitempty"`
}

type Recipe struct {
	ID                 int      `json:"id"`
	Name               string   `json:"name"`
	Ingredients        []string `json:"ingredients"`
	Instructions       []string `json:"instructions"`
	PrepTimeMinutes    int      `json:"prepTimeMinutes"`
	CookTimeMinutes    int      `json:"cookTimeMinutes"`
	Servings           int      `json:"servings"`
	Difficulty         string   `json:"difficulty"`
	Cuisine            string   `json:"cuisine"`
	CaloriesPerServing int      `json:"caloriesPerServing"`
	Tags               []string `json:"tags,omitempty"`
	Image              string   `json:"image,omitempty"`
	Rating             float64  `json:"rating"`
	ReviewCount        int      `json:"reviewCount"`
	MealType           []string `json:"mealType,omitempty"`
}

type Todo struct {
	ID        int    `json:"id"`
	Todo      string `json:"todo"`
	Completed bool   `json:"completed"`
	UserID    int    `json:"userId"`

	IsDeleted bool   `json:"isDeleted,omitempty"`
	DeletedOn string `json:"deletedOn,omitempty"`
}

// Category is a product category. Older API versions list bare slugs.
type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

func (c *Category) UnmarshalJSON(b []byte) error {
	var slug string
	if err := json.Unmarshal(b, &slug); err == nil {
		*c = Category{Slug: slug, Name: slug}
		return nil
	}
	type plain Category
	return json.Unmarshal(b, (*plain)(c))
}

// ProductInput is the body of a product add or update.
type ProductInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock"`
	Rating      float64 `json:"rating"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
}

func (p ProductInput) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(3, 0)),
		validation.Field(&p.Description, validation.Required, validation.Length(10, 0)),
		validation.Field(&p.Price, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&p.Category, validation.Required),
		validation.Field(&p.Stock, validation.Required, validation.Min(1)),
		validation.Field(&p.Rating, validation.Min(0.0), validation.Max(5.0)),
	)
}

// TodoInput is the body of a todo add. UserID defaults to 1.
type TodoInput struct {
	Todo      string `json:"todo"`
	Completed bool   `json:"completed"`
	UserID    int    `json:"userId"`
}

func (t TodoInput) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Todo, validation.Required, validation.Length(3, 0)),
		validation.Field(&t.UserID, validation.Min(1)),
	)
}

// TodoUpdate is a partial todo update; nil fields are left out of the body.
type TodoUpdate struct {
	Todo      *string `json:"todo,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
	UserID    *int    `json:"userId,omitempty"`
}

var ErrEmptyUpdate = errors.New("update has no fields")

func (u TodoUpdate) Validate() error {
	if u.Todo == nil && u.Completed == nil && u.UserID == nil {
		return ErrEmptyUpdate
	}
	return validation.ValidateStruct(&u,
		validation.Field(&u.Todo, validation.NilOrNotEmpty, validation.Length(3, 0)),
		validation.Field(&u.UserID, validation.NilOrNotEmpty, validation.Min(1)),
	)
}

// ValidationError rejects a write before any request is sent.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) ErrCode() string {
	return "VALIDATION_ERROR"
}

func (e *ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

