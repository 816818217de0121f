/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package logging

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	gologme "github.com/gologme/log"
)

// New returns a subsystem logger with a coloured name prefix. The warn,
// error and info levels are enabled; debug only on request.
func New(w io.Writer, name string, debug bool) *gologme.Logger {
	yellow := color.New(color.FgYellow).SprintfFunc()
	glog := gologme.New(w, fmt.Sprintf("[ %s ] ", yellow(name)), gologme.LstdFlags|gologme.Lmsgprefix)
	glog.EnableLevel("warn")
	glog.EnableLevel("error")
	glog.EnableLevel("info")
	if debug {
		glog.EnableLevel("debug")
	}
	return glog
}
