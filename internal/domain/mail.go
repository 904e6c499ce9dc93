package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type RosterGeneratedMailData struct {
	Kind        string `json:"kind"` // "roster" 或 "rotation"
	StartMonth  string `json:"startMonth"`
	EndMonth    string `json:"endMonth"`
	SheetCount  int    `json:"sheetCount"`
	GeneratedAt string `json:"generatedAt"`
}
