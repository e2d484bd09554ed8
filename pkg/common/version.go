package common

import "fmt"

// NAME of the App
var NAME = "atlas"

// SUMMARY of the Version
var SUMMARY = "0.1.0-dev"

// BRANCH of the Version
var BRANCH = "dev"

// VERSION of Release
var VERSION = "0.1.0"

// COMMIT of the Version
var COMMIT = "dirty"

// AppVersion --
var AppVersion AppVersionInfo

// AppVersionInfo --
type AppVersionInfo struct {
	Name    string
	Version string
	Branch  string
	Summary string
	Commit  string
}

func init() {
	AppVersion = AppVersionInfo{
		Name:    NAME,
		Version: VERSION,
		Branch:  BRANCH,
		Summary: SUMMARY,
		Commit:  COMMIT,
	}
}

// UserAgent is sent on every outbound request.
func UserAgent() string {
	return fmt.Sprintf("%s/%s", NAME, VERSION)
}
