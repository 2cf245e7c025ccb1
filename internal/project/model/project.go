package model

// Project is the tenant boundary. Spans and traces always carry the
// project_id of the authenticated project, never one from client input.
type Project struct {
	Id        string `json:"id"`
	ApiKey    string `json:"api_key"`
	Name      string `json:"name,omitempty"`
	Language  string `json:"language,omitempty"`
	Framework string `json:"framework,omitempty"`
}
