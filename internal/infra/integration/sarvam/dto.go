package sarvam

type chatRequest struct {
	Query    string `json:"query"`
	Language string `json:"language"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type transcriptResponse struct {
	Transcript   string `json:"transcript"`
	LanguageCode string `json:"language_code"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}
