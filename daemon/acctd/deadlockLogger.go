// Copyright (C) 2019-2025 Algorand, Inc.
// This file is part of erc4337
//
// erc4337 is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// erc4337 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with erc4337.  If not, see <https://www.gnu.org/licenses/>.

package acctd

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/algorand/go-deadlock"

	"github.com/irfanm0/erc4337/logging"
)

// deadlockLogger collects the go-deadlock report and logs it once, after
// dumping every goroutine stack to stderr.
type deadlockLogger struct {
	log    logging.Logger
	mu     sync.Mutex
	buf    bytes.Buffer
	once   sync.Once
	report func(string)
}

// Write implements the io.Writer interface for deadlock.Opts.LogBuf.
func (dl *deadlockLogger) Write(p []byte) (int, error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return dl.buf.Write(p)
}

func (dl *deadlockLogger) onPotentialDeadlock() {
	dl.once.Do(func() {
		buf := make([]byte, 256*1024)
		for runtime.Stack(buf, true) == len(buf) {
			buf = make([]byte, 2*len(buf))
		}
		fmt.Fprintln(os.Stderr, string(buf))

		dl.mu.Lock()
		logged := dl.buf.String()
		dl.mu.Unlock()

		// the log writer holds a deadlock mutex of its own
		go dl.report(logged)
	})
}

func setupDeadlockLogger(log logging.Logger) *deadlockLogger {
	dl := &deadlockLogger{log: log}
	dl.report = func(s string) {
		dl.log.Error(s)
		dl.log.Panic("potential deadlock detected")
	}
	deadlock.Opts.LogBuf = dl
	deadlock.Opts.OnPotentialDeadlock = dl.onPotentialDeadlock
	return dl
}
