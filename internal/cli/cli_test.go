package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/prompt-workshop/internal/adapter/memory"
	"github.com/alanyang/prompt-workshop/internal/domain/card"
	"github.com/alanyang/prompt-workshop/internal/domain/generation"
	"github.com/alanyang/prompt-workshop/internal/mocks"
	librarysvc "github.com/alanyang/prompt-workshop/internal/service/library"
	studiosvc "github.com/alanyang/prompt-workshop/internal/service/studio"
	"github.com/alanyang/prompt-workshop/internal/wire"
)

// testOpener shares one in-memory workshop across command invocations.
func testOpener(t *testing.T) (Opener, *mocks.MockGenerator, *librarysvc.Service) {
	t.Helper()
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	bus := memory.NewEventBus()
	lib := librarysvc.NewService(memory.NewSlotStore(), bus, librarysvc.DefaultKey)
	studio := studiosvc.NewService(gen, lib, bus, generation.NewComposer("m", "English"))

	open := func(context.Context) (*wire.Services, error) {
		return &wire.Services{Studio: studio, Library: lib, EventBus: bus}, nil
	}
	return open, gen, lib
}

func run(t *testing.T, open Opener, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(open)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

var saved = card.Card{ID: "s1", Title: "Standup", Type: "Business", Content: "Summarize my updates", Date: 1}

func TestRootCmd_Help(t *testing.T) {
	open, _, _ := testOpener(t)
	out, err := run(t, open, "", "--help")
	require.NoError(t, err)
	for _, sub := range []string{"serve", "generate", "optimize", "refine", "list", "save", "delete", "clear"} {
		assert.Contains(t, out, sub)
	}
}

func TestGenerateCmd_SaveAll(t *testing.T) {
	open, gen, lib := testOpener(t)
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).
		Return(`[{"title":"Alpha","type":"Coding","content":"write tests"},{"title":"Beta","type":"Coding","content":"review code"}]`, nil)

	out, err := run(t, open, "", "generate", "--topic", "go", "--save", "help", "me", "code")
	require.NoError(t, err)
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "Beta")
	assert.Contains(t, out, "saved")
	assert.Equal(t, 2, lib.Len())
}

func TestGenerateCmd_ErrorCardIsNotSaved(t *testing.T) {
	open, gen, lib := testOpener(t)
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("", errors.New("offline"))

	out, err := run(t, open, "", "generate", "--save", "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "Connection error")
	assert.Equal(t, 0, lib.Len())
}

func TestGenerateCmd_RequiresIdea(t *testing.T) {
	open, _, _ := testOpener(t)
	_, err := run(t, open, "", "generate")
	assert.Error(t, err)
}

func TestListCmd(t *testing.T) {
	open, _, lib := testOpener(t)

	out, err := run(t, open, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved prompts yet.")

	_, err = lib.Save(context.Background(), saved)
	require.NoError(t, err)
	_, err = lib.Save(context.Background(), card.Card{ID: "s2", Title: "Haiku", Type: "Creative Writing", Content: "Five seven five", Date: 2})
	require.NoError(t, err)

	out, err = run(t, open, "", "ls", "--query", "haiku")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved prompts (1 of 2)")
	assert.Contains(t, out, "Haiku")
	assert.NotContains(t, out, "Standup")

	out, err = run(t, open, "", "list", "--type", "Nope")
	require.NoError(t, err)
	assert.Contains(t, out, "No cards match")

	out, err = run(t, open, "", "list", "--json", "--order", "asc")
	require.NoError(t, err)
	var resp struct {
		Cards []card.Card `json:"cards"`
		Total int         `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Cards, 2)
	assert.Equal(t, "s1", resp.Cards[0].ID, "ascending puts the oldest first")

	out, err = run(t, open, "", "list", "--json", "--order", "asc", "--reverse")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Cards, 2)
	assert.Equal(t, "s2", resp.Cards[0].ID, "reverse flips ascending back to newest first")
}

func TestSaveAndDeleteCmd(t *testing.T) {
	open, _, lib := testOpener(t)

	out, err := run(t, open, "", "save", "--title", "Mine", "--type", "Lifestyle", "plan", "my", "week")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Saved 'Mine'")
	require.Equal(t, 1, lib.Len())
	c := lib.List()[0]
	assert.Equal(t, "plan my week", c.Content)

	out, err = run(t, open, "", "rm", c.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Removed")
	assert.Equal(t, 0, lib.Len())

	_, err = run(t, open, "", "delete", c.ID)
	assert.Error(t, err)
}

func TestClearCmd_Confirmation(t *testing.T) {
	open, _, lib := testOpener(t)
	_, err := lib.Save(context.Background(), saved)
	require.NoError(t, err)

	out, err := run(t, open, "n\n", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")
	assert.Equal(t, 1, lib.Len())

	_, err = run(t, open, "yes\n", "clear")
	require.NoError(t, err)
	assert.Equal(t, 0, lib.Len())

	_, _ = lib.Save(context.Background(), saved)
	_, err = run(t, open, "", "clear", "--yes")
	require.NoError(t, err)
	assert.Equal(t, 0, lib.Len())
}

func TestOptimizeAndRefineCmd(t *testing.T) {
	open, gen, lib := testOpener(t)
	_, err := lib.Save(context.Background(), saved)
	require.NoError(t, err)

	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(`{"content":"You are a scrum master. Summarize."}`, nil)
	out, err := run(t, open, "", "optimize", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "scrum master")
	got, _ := lib.Get("s1")
	assert.Equal(t, "You are a scrum master. Summarize.", got.Content)

	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(`{"title":"Daily"}`, nil)
	_, err = run(t, open, "", "refine", "s1", "rename", "it")
	require.NoError(t, err)
	got, _ = lib.Get("s1")
	assert.Equal(t, "Daily", got.Title)

	_, err = run(t, open, "", "optimize", "missing")
	assert.Error(t, err)
}
