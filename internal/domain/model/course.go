package model

import "github.com/gosimple/slug"

type Course struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	Slug string `json:"slug"` // lookup key derived from Code, not rendered in views
}

// CourseSlug normalizes a course code ("CS 1998", "cs1998 ") into the lookup key.
func CourseSlug(code string) string {
	return slug.Make(code)
}

type Assignment struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	DueDate  int64  `json:"due_date"` // UNIX seconds
	CourseID int64  `json:"course_id"`
}
