package echoapi

import (
	"github.com/clms-app/clms/core/course"
	"github.com/clms-app/clms/core/gamification"
	"github.com/clms-app/clms/core/user"
)

type (
	MessageResponse struct {
		Message string `json:"message"`
	}

	LoginResponse struct {
		Message string `json:"message"`
		Token   string `json:"token"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	TeacherResponse struct {
		Message string       `json:"message"`
		Teacher user.Teacher `json:"teacher"`
	}

	StudentResponse struct {
		Message string       `json:"message"`
		Student user.Student `json:"student"`
	}

	SubjectResponse struct {
		Message string         `json:"message"`
		Subject course.Subject `json:"subject"`
	}

	LessonResponse struct {
		Message string        `json:"message"`
		Lesson  course.Lesson `json:"lesson"`
	}

	// CompletionResponse flattens the completion result next to the message.
	CompletionResponse struct {
		Message string `json:"message"`
		gamification.CompletionResult
	}
)
