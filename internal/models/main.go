// Package models defines the core data structures shared by the crowdfunding
// client and the reference backend: profiles, projects, rewards and contributions.
package models

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Credentials is the login payload.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Validate checks that both login and password are present.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Login, validation.Required),
		validation.Field(&c.Password, validation.Required),
	)
}

// AuthTokens is returned by the login and refresh endpoints.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// ProfileFields holds the self-editable part of a profile.
type ProfileFields struct {
	// Name is the first name.
	Name string `json:"name"`
	// Surname is the family name.
	Surname string `json:"surname"`
	// Patronymic may be empty.
	Patronymic string `json:"patronymic"`
	// BankNumber identifies the account payouts go to.
	BankNumber string `json:"bank_number"`
	// PhoneNumber is optional.
	PhoneNumber *string `json:"phone_number,omitempty"`
}

// Validate checks field presence and length limits.
func (f ProfileFields) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&f.Surname, validation.Required, validation.Length(1, 255)),
		validation.Field(&f.Patronymic, validation.Length(0, 255)),
		validation.Field(&f.BankNumber, validation.Required, validation.Length(1, 255)),
	)
}

// ProfileUpdate is the self-service update payload; it carries base fields only.
type ProfileUpdate = ProfileFields

// Capabilities are independent permission flags; a profile may hold any combination.
type Capabilities struct {
	IsAdmin    bool `json:"is_admin"`
	IsAuthor   bool `json:"is_author"`
	IsInvestor bool `json:"is_investor"`
}

// Profile is a registered user identity as returned by the backend.
type Profile struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	ProfileFields
	Capabilities
}

// ProfileCreate is the registration payload.
type ProfileCreate struct {
	ProfileFields
	Login    string `json:"login"`
	Password string `json:"password"`
	Capabilities
}

// Validate checks the registration payload field by field.
func (p ProfileCreate) Validate() error {
	errs := validation.Errors{}
	if err := p.ProfileFields.Validate(); err != nil {
		if fieldErrs, ok := err.(validation.Errors); ok {
			for k, v := range fieldErrs {
				errs[k] = v
			}
		} else {
			return err
		}
	}
	if err := validation.Validate(p.Login, validation.Required, validation.Length(1, 255)); err != nil {
		errs["login"] = err
	}
	if err := validation.Validate(p.Password, validation.Required); err != nil {
		errs["password"] = err
	}
	return errs.Filter()
}

// Credentials returns the login payload matching this registration.
func (p ProfileCreate) Credentials() Credentials {
	return Credentials{Login: p.Login, Password: p.Password}
}

// ProjectInput holds the author-editable fields of a project.
type ProjectInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	GoalAmount  float64 `json:"goal_amount"`
	ProjectType string  `json:"project_type"`
	StartDate   Date    `json:"start_date"`
	EndDate     Date    `json:"end_date"`
}

// Validate checks required fields, a positive goal and that the start date
// precedes the end date.
func (in ProjectInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.GoalAmount, validation.Required, validation.Min(0.0)),
		validation.Field(&in.StartDate, validation.By(requiredDate)),
		validation.Field(&in.EndDate, validation.By(requiredDate), validation.By(func(v interface{}) error {
			end, _ := v.(Date)
			if in.StartDate.IsZero() || end.IsZero() {
				return nil
			}
			if !in.StartDate.Before(end) {
				return errDateOrder
			}
			return nil
		})),
	)
}

var (
	errDateRequired = errors.New("cannot be blank")
	errDateOrder    = errors.New("must be after start_date")
)

func requiredDate(v interface{}) error {
	d, _ := v.(Date)
	if d.IsZero() {
		return errDateRequired
	}
	return nil
}

// Project is a fundraising campaign with a moderation lifecycle.
type Project struct {
	ID       int64 `json:"id"`
	AuthorID int64 `json:"author_id"`
	ProjectInput
	Status           Status  `json:"status"`
	ModeratorComment *string `json:"moderator_comment"`
}

// Comment returns the moderator comment or an empty string.
func (p Project) Comment() string {
	if p.ModeratorComment == nil {
		return ""
	}
	return *p.ModeratorComment
}

// RewardInput holds the author-editable fields of a reward.
type RewardInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// Validate checks the reward title, a positive price and a non-negative quantity.
func (in RewardInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Price, validation.Required, validation.Min(0.0)),
		validation.Field(&in.Quantity, validation.Min(0)),
	)
}

// Reward is a purchasable tier attached to a project.
type Reward struct {
	ID        int64 `json:"id"`
	ProjectID int64 `json:"project_id"`
	RewardInput
	Active bool `json:"active"`
}

// Contribution records one profile claiming one reward of one project.
type Contribution struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	RewardID  int64     `json:"reward_id"`
	ProfileID int64     `json:"profile_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectSnapshot is a point-in-time copy of a project embedded in a read
// projection. It is never updated after it was read.
type ProjectSnapshot Project

// RewardSnapshot is a point-in-time copy of a reward embedded in a read projection.
type RewardSnapshot Reward

// DetailedContribution is a contribution joined with the project and reward
// as they were when the history was read.
type DetailedContribution struct {
	Contribution
	Project ProjectSnapshot `json:"project"`
	Reward  RewardSnapshot  `json:"reward"`
}

// GlobalStats is the platform-wide aggregate. Missing fields decode as zero.
type GlobalStats struct {
	TotalCount   int64   `json:"total_count"`
	TotalAmount  float64 `json:"total_amount"`
	CoolProjects int64   `json:"cool_projects"`
}
