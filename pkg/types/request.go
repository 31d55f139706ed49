package types

// UpdateRequest is one row of a check file. Requests are created once at
// load time and never mutated.
type UpdateRequest struct {
	Skill      string `json:"skill"`
	Bucket     string `json:"bucket"`
	Result     string `json:"result"`
	Strategy   string `json:"strategy"`
	Repo       string `json:"repo"`
	RemotePath string `json:"remote_path"`
	Note       string `json:"note"`
}

// HasRemote reports whether the row carries a usable repo and remote path.
// Check files use "-" as the empty placeholder.
func (r UpdateRequest) HasRemote() bool {
	return r.Repo != "" && r.Repo != "-" && r.RemotePath != "" && r.RemotePath != "-"
}
