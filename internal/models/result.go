package models

type UploadResponse struct {
	Message       string   `json:"message"`
	UploadedFiles []string `json:"uploaded_files"`
	TotalSize     int64    `json:"total_size"`
	FileCount     int      `json:"file_count"`
}

type SubmitJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type JobStatusResponse struct {
	JobID          string  `json:"job_id"`
	Status         string  `json:"status"`
	Progress       float64 `json:"progress"`
	CurrentFile    string  `json:"current_file,omitempty"`
	ProcessedFiles int     `json:"processed_files"`
	TotalFiles     int     `json:"total_files"`
	ElapsedTime    float64 `json:"elapsed_time"`
	ErrorMessage   *string `json:"error_message,omitempty"`
}

type ParametersResponse struct {
	Parameters []Criterion `json:"parameters"`
}
