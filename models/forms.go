package models

import (
	"strconv"
	"strings"

	"msgboard/config"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator registers the configured length limits as tag aliases.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterAlias("title_len", "max="+strconv.Itoa(config.MaxTitleLen))
	v.RegisterAlias("content_len", "max="+strconv.Itoa(config.MaxContentLen))
	v.RegisterAlias("login_len", "max="+strconv.Itoa(config.MaxLoginLen))
	v.RegisterAlias("password_len", "min="+strconv.Itoa(config.MinPasswordLen))
	return v
}

// NewTopicInput is the payload of the new-topic form.
type NewTopicInput struct {
	Title     string `validate:"required,title_len"`
	Content   string `validate:"required,content_len"`
	ForumID   int64  `validate:"required,gt=0"`
	Subscribe bool
}

// NewReplyInput is the payload of the new-reply form.
type NewReplyInput struct {
	Content   string `validate:"required,content_len"`
	TopicID   int64  `validate:"required,gt=0"`
	Subscribe bool
}

// EditPostInput is the payload of the topic and reply edit forms. Title
// is ignored for replies.
type EditPostInput struct {
	Title   string `validate:"title_len"`
	Content string `validate:"required,content_len"`
}

type RegisterInput struct {
	Login    string `validate:"required,min=3,login_len,alphanumunicode"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,password_len,max=128"`
}

type LoginInput struct {
	Login    string `validate:"required"`
	Password string `validate:"required"`
}

type ForumInput struct {
	Title     string `validate:"required,title_len"`
	Content   string `validate:"content_len"`
	ForumType string `validate:"omitempty,oneof=forum category"`
	Status    string `validate:"omitempty,oneof=open close private hidden trash"`
	ParentID  int64  `validate:"gte=0"`
	MenuOrder int64
}

// Validate trims the text fields and checks the struct tags.
func (in *NewTopicInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	return validate.Struct(in)
}

func (in *NewReplyInput) Validate() error {
	in.Content = strings.TrimSpace(in.Content)
	return validate.Struct(in)
}

func (in *EditPostInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	return validate.Struct(in)
}

func (in *RegisterInput) Validate() error {
	in.Login = strings.TrimSpace(in.Login)
	in.Email = strings.TrimSpace(in.Email)
	return validate.Struct(in)
}

func (in *LoginInput) Validate() error {
	in.Login = strings.TrimSpace(in.Login)
	return validate.Struct(in)
}

func (in *ForumInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	return validate.Struct(in)
}

// ValidationMessage turns a validator error into a short user-facing message.
func ValidationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Invalid input."
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.ActualTag() {
	case "required", "gt":
		return "The " + field + " field is required."
	case "max":
		return "The " + field + " field is too long."
	case "min":
		return "The " + field + " field is too short."
	case "email":
		return "Please enter a valid email address."
	case "oneof":
		return "The " + field + " field has an unsupported value."
	default:
		return "The " + field + " field is invalid."
	}
}
