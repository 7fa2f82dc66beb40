package handlers

import "time"

// IssueRequest is the request body for creating a short link.
type IssueRequest struct {
	Body struct {
		URL string   `doc:"The URL to shorten" example:"https://example.com/very/long/path" json:"url"`
		_   struct{} `additionalProperties:"true"                                          json:"-"`
	}
}

// IssueResponse is the response for a successfully issued token.
type IssueResponse struct {
	Headers struct {
		Location string `doc:"The short URL location" header:"Location"`
	}
	Body struct {
		Token    string `doc:"The issued token"   example:"AbC123"                       json:"token"`
		ShortURL string `doc:"The full short URL" example:"http://localhost:8888/t/AbC123" json:"shortUrl"`
	}
}

// TokenRequest addresses a link by its token.
type TokenRequest struct {
	Token string `doc:"The short token" example:"AbC123" path:"token"`
}

// RedirectResponse is either a redirect to the destination or the fallback page.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location    string `header:"Location"`
		ContentType string `header:"Content-Type"`
	}
	Body []byte
}

// LinkResponse describes a stored link.
type LinkResponse struct {
	Body struct {
		Token     string    `doc:"The short token"          example:"AbC123"                json:"token"`
		URL       string    `doc:"The destination URL"      example:"https://example.com/a" json:"url"`
		CreatedAt time.Time `doc:"When the token was issued"                                json:"createdAt"`
	}
}
