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

// Package healthz provides the liveness endpoint served alongside
// metrics by the routing agent and routing agent proxy binaries.
package healthz

import "net/http"

// Healthz answers a liveness probe.
func Healthz(w http.ResponseWriter, req *http.Request) {
	w.Write([]byte("ok"))
}
