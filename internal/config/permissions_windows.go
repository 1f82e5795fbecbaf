//go:build windows

package config

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// groups whose presence in an ACL means other accounts can read the file
var openACLGroups = []string{
	"everyone",
	"authenticated users",
	"builtin\\users",
	"users",
}

// checkFilePermissions warns when the ACL of the file named by path,
// described by what ("config file", "properties file"), grants a shared group.
func checkFilePermissions(path, what string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}

	output, err := exec.Command("icacls", path).Output()
	if err != nil {
		return ""
	}
	acl := strings.ToLower(string(output))

	for _, group := range openACLGroups {
		if !strings.Contains(acl, group) {
			continue
		}
		return fmt.Sprintf(
			"WARNING: %s '%s' grants access to %q\n"+
				"         It names the source and destination stores and may carry their credentials.\n"+
				"         Run in PowerShell: icacls \"%s\" /inheritance:r /grant:r \"%%USERNAME%%:F\"\n\n",
			what, path, group, path,
		)
	}
	return ""
}
