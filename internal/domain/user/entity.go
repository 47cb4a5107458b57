// Package user contains the user payloads exchanged with the remote API.
// Field names follow the API's JSON, including its spelling of "objetive"
// and "alergic".
package user

// User is the identity returned by GET /users/me
type User struct {
	ID        string  `json:"_id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Gender    string  `json:"gender,omitempty"`
	Weight    float64 `json:"weight,omitempty"`
	Height    float64 `json:"height,omitempty"`
	Objective string  `json:"objetive,omitempty"`
	Ability   string  `json:"ability,omitempty"`
	TypeDiet  string  `json:"typeDiet,omitempty"`
	Allergies string  `json:"alergic,omitempty"`
	Avatar    string  `json:"avatar,omitempty"`
}

// Credentials is the login payload
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the sign-up payload
type Registration struct {
	Name      string  `json:"name" validate:"required,max=100"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=6"`
	Gender    string  `json:"gender,omitempty"`
	Weight    float64 `json:"weight,omitempty" validate:"gte=0,lte=500"`
	Height    float64 `json:"height,omitempty" validate:"gte=0,lte=300"`
	Objective string  `json:"objetive,omitempty"`
	Ability   string  `json:"ability,omitempty"`
	TypeDiet  string  `json:"typeDiet,omitempty"`
	Allergies string  `json:"alergic,omitempty"`
}

// ProfileUpdate carries the editable profile fields; zero values are omitted.
type ProfileUpdate struct {
	Name      string  `json:"name,omitempty" validate:"max=100"`
	Email     string  `json:"email,omitempty" validate:"omitempty,email"`
	Gender    string  `json:"gender,omitempty"`
	Weight    float64 `json:"weight,omitempty" validate:"gte=0,lte=500"`
	Height    float64 `json:"height,omitempty" validate:"gte=0,lte=300"`
	Objective string  `json:"objetive,omitempty"`
	Ability   string  `json:"ability,omitempty"`
	TypeDiet  string  `json:"typeDiet,omitempty"`
	Allergies string  `json:"alergic,omitempty"`
}

// Apply returns u with the non-empty fields of p copied over.
func (p ProfileUpdate) Apply(u User) User {
	if p.Name != "" {
		u.Name = p.Name
	}
	if p.Email != "" {
		u.Email = p.Email
	}
	if p.Gender != "" {
		u.Gender = p.Gender
	}
	if p.Weight != 0 {
		u.Weight = p.Weight
	}
	if p.Height != 0 {
		u.Height = p.Height
	}
	if p.Objective != "" {
		u.Objective = p.Objective
	}
	if p.Ability != "" {
		u.Ability = p.Ability
	}
	if p.TypeDiet != "" {
		u.TypeDiet = p.TypeDiet
	}
	if p.Allergies != "" {
		u.Allergies = p.Allergies
	}
	return u
}

// AvatarUpload is the response of the avatar upload endpoint
type AvatarUpload struct {
	URL     string `json:"url,omitempty"`
	Avatar  string `json:"avatar,omitempty"`
	Message string `json:"message,omitempty"`
}

// ImageURL returns whichever URL field the API filled in.
func (a AvatarUpload) ImageURL() string {
	if a.URL != "" {
		return a.URL
	}
	return a.Avatar
}
