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

package sponsor

import (
	"github.com/algorand/go-deadlock"

	"github.com/irfanm0/erc4337/data/basics"
)

// Registry maps sponsor addresses to their gates.
type Registry struct {
	mu    deadlock.RWMutex
	gates map[basics.Address]*Gate
}

// MakeRegistry creates an empty Registry.
func MakeRegistry() *Registry {
	return &Registry{gates: make(map[basics.Address]*Gate)}
}

// Add registers g, replacing any gate of the same sponsor.
func (r *Registry) Add(g *Gate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gates[g.Sponsor()] = g
}

// Gate returns the gate of sponsor.
func (r *Registry) Gate(sponsor basics.Address) (*Gate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gates[sponsor]
	return g, ok
}
