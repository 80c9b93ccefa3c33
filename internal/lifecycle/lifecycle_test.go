// Copyright sfrouting Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCloseFinish(t *testing.T) {
	var c Component
	assert.Equal(t, Closed, c.State())

	c.MustOpen()
	assert.Equal(t, Open, c.State())
	assert.True(t, c.RequireOpen())

	assert.True(t, c.BeginClose())
	assert.Equal(t, Closing, c.State())
	assert.False(t, c.RequireOpen())

	// A second BeginClose from a racing Close call is a no-op.
	assert.False(t, c.BeginClose())

	c.Finish()
	assert.Equal(t, Closed, c.State())
}

func TestDoubleOpenPanics(t *testing.T) {
	var c Component
	c.MustOpen()
	require.Panics(t, func() { c.MustOpen() })
}
