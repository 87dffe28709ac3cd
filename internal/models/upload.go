package models

import "time"

// UploadTask tracks whether a confirmed session's video has been delivered.
// There is at most one task per class session. The editor is stamped when an
// editor marks the task uploaded, not at creation.
type UploadTask struct {
	ID             string     `db:"id" json:"id"`
	ClassSessionID string     `db:"class_session_id" json:"class_session_id"`
	EditorID       *string    `db:"editor_id" json:"editor_id,omitempty"`
	Uploaded       bool       `db:"uploaded" json:"uploaded"`
	VideoURL       *string    `db:"video_url" json:"video_url,omitempty"`
	UploadedAt     *time.Time `db:"uploaded_at" json:"uploaded_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// UploadTaskDetail joins the parent session's display fields for the editor
// work queues and bills.
type UploadTaskDetail struct {
	UploadTask
	SessionName string  `db:"session_name" json:"session_name"`
	CourseName  string  `db:"course_name" json:"course_name"`
	TeacherName string  `db:"teacher_name" json:"teacher_name"`
	TeacherTpin string  `db:"teacher_tpin" json:"teacher_tpin"`
	EditorName  *string `db:"editor_name" json:"editor_name,omitempty"`
}

// UploadTaskFilter bounds uploaded_at for the uploaded-videos report and the
// upload bill. End is inclusive of the whole final day.
type UploadTaskFilter struct {
	Start *time.Time
	End   *time.Time
}
