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

package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocationVersionOrdering(t *testing.T) {
	older := LocationVersion{FMVersion: 7, Generation: 3}
	newer := LocationVersion{FMVersion: 9, Generation: 3}
	assert.True(t, older.Less(newer))
	assert.False(t, newer.Less(older))

	newerGen := LocationVersion{FMVersion: 1, Generation: 4}
	assert.True(t, older.Less(newerGen))
}

func TestLocationVersionEqual(t *testing.T) {
	a := LocationVersion{FMVersion: 1, Generation: 1, Reserved: 0}
	b := LocationVersion{FMVersion: 1, Generation: 1, Reserved: 0}
	assert.True(t, a.Equal(b))
}

func TestPartitionInfoString(t *testing.T) {
	assert.Equal(t, "Singleton", Singleton().String())
	assert.Equal(t, "Int64Range[0,10]", Int64Range(0, 10).String())
	assert.Equal(t, "Named(foo)", Named("foo").String())
}
