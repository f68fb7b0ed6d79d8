/*
 * Copyright The OpenTelemetry Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package werror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWError(t *testing.T) {
	t.Parallel()

	err := Level1a()
	require.Contains(t, err.Error(), "Level1a")
	require.Contains(t, err.Error(), "Level2")
	require.Contains(t, err.Error(), "id=1")
	require.Contains(t, err.Error(), "test error")

	err = Level1b()
	require.Contains(t, err.Error(), "Level1b")
	require.Contains(t, err.Error(), "id=2")
}

var ErrTest = errors.New("test error")

func Level1a() error {
	return Wrap(Level2(1))
}

func Level1b() error {
	return Wrap(Level2(2))
}

func Level2(id int) error {
	return WrapWithContext(ErrTest, map[string]interface{}{"id": id})
}
