package model

import "time"

// ProjectRequest groups the projects a client asked for.
type ProjectRequest struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	ClientID  int       `json:"clientId"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
}

// Project is one underlying project of a request, executed by an associate company.
type Project struct {
	ID               int    `json:"id"`
	ProjectRequestID int    `json:"projectRequestId"`
	Title            string `json:"title"`
	CompanyID        *int   `json:"companyId"`
	CompanyName      string `json:"companyName"`
}
