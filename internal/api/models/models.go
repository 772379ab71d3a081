package models

// HealthData reports capture liveness.
type HealthData struct {
	Status  string `json:"status" example:"ok" enum:"ok,idle" doc:"ok while capturing, idle when the source is closed or stopped"`
	Message string `json:"message" example:"capturing" doc:"Status detail"`
	Source  string `json:"source,omitempty" example:"v4l2:///dev/video0" doc:"Source name"`
}

type HealthResponse struct {
	Body HealthData
}

// VersionData describes the running build.
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	Modified  bool   `json:"modified" example:"false" doc:"Built from a dirty tree"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go compiler version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}
