// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diag

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/linkprep/services/parse/arena"
	"github.com/AleutianAI/linkprep/services/parse/sentence"
)

func fixture(t *testing.T) *sentence.Sentence {
	t.Helper()
	s := sentence.New([][]sentence.Alternative{
		{{Label: "the"}},
		{{Label: "dog"}},
		{},
	}, sentence.DefaultPoolOptions())

	add := func(w int, spec sentence.DisjunctSpec) {
		id, err := s.NewDisjunct(spec)
		require.NoError(t, err)
		s.SetHead(w, s.Catenate(s.Word(w).Head, id))
	}
	add(0, sentence.DisjunctSpec{Label: "the.d", Right: []sentence.ConnectorSpec{{Name: "D", LengthLimit: 2}}})
	add(1, sentence.DisjunctSpec{
		Label: "dog.n",
		Cost:  0.5,
		Left: []sentence.ConnectorSpec{
			{Name: "D", LengthLimit: 2},
			{Name: "A", Multi: true, LengthLimit: sentence.UnlimitedLength},
		},
	})
	add(1, sentence.DisjunctSpec{Label: "dog.v", Right: []sentence.ConnectorSpec{{Name: "O", LengthLimit: 1}}})
	return s
}

func TestCount(t *testing.T) {
	s := fixture(t)
	c := Count(s)

	assert.Equal(t, []int{1, 2, 0}, c.PerWord)
	assert.Equal(t, 3, c.Total)
	assert.Equal(t, 2, c.Max())
	assert.Equal(t, 0, Counts{}.Max())
}

func TestWriteCounts(t *testing.T) {
	s := fixture(t)
	var buf bytes.Buffer

	require.NoError(t, WriteCounts(&buf, s, Count(s)))
	assert.Equal(t, "the(1) dog(2) w2(0)\nTotal: 3 disjuncts\n", buf.String())
}

func TestDump(t *testing.T) {
	s := fixture(t)
	head := s.Disjunct(s.Word(1).Head).Left
	s.Connector(head).Shallow = true
	s.Connector(head).NearestWord = 0
	s.Connector(head).FarthestWord = 0

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, s))
	out := buf.String()

	assert.Contains(t, out, "[0] the: 1 disjuncts\n")
	assert.Contains(t, out, "    0.000 the.d:  <> D+(0,0)\n")
	// Left chain printed farthest first.
	assert.Contains(t, out, "    0.500 dog.n: @A-(0,0) D-(0,0)s <> \n")
	assert.Contains(t, out, "[2] w2: 0 disjuncts\n")
}

func TestDump_EmptySentence(t *testing.T) {
	s := sentence.New(nil, sentence.DefaultPoolOptions())
	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, s))
	assert.Empty(t, buf.String())
}

func TestLogObserver(t *testing.T) {
	s := fixture(t)
	var logs, dump bytes.Buffer
	obs := &LogObserver{
		Logger: slog.New(slog.NewJSONHandler(&logs, nil)),
		Out:    &dump,
	}

	t.Run("counts only before the final stage", func(t *testing.T) {
		obs.Checkpoint(context.Background(), StageExpanded, s)
		assert.Contains(t, logs.String(), `"stage":"expanded"`)
		assert.Contains(t, logs.String(), `"total":3`)
		assert.Contains(t, logs.String(), s.ID())
		assert.Zero(t, dump.Len())
	})

	t.Run("dump at prepared", func(t *testing.T) {
		obs.Checkpoint(context.Background(), StagePrepared, s)
		assert.True(t, strings.HasPrefix(dump.String(), "[0] the:"))
	})
}

func TestLogObserver_DefaultLogger(t *testing.T) {
	s := sentence.New(make([][]sentence.Alternative, 1), sentence.DefaultPoolOptions())
	assert.NotPanics(t, func() {
		(&LogObserver{}).Checkpoint(context.Background(), StageDeduplicated, s)
	})
	assert.Equal(t, arena.Nil, s.Word(0).Head)
}
