package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-yolo/annotations"
)

func TestSplitLabels(t *testing.T) {
	assert.Nil(t, splitLabels(""))
	assert.Equal(t, []string{"person", "traffic light"}, splitLabels(" person, ,traffic light ,"))
}

func TestRender_CSV(t *testing.T) {
	color.NoColor = true
	rows := []annotations.Row{
		{Frame: 1, Label: "person", Conf1: 0.8, Conf2: 0.9, Has1: true, Has2: true},
		{Frame: 2, Label: "car", Conf1: 0.7, Has1: true},
	}

	var buf bytes.Buffer
	render(&buf, rows, true)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.EqualFold("Frame,Label,File 1 Confidence,File 2 Confidence,Change", lines[0]), lines[0])
	assert.Equal(t, "1,person,0.80,0.90,+0.10", lines[1])
	assert.Equal(t, "2,car,0.70,-,-", lines[2])
}

func TestRender_Table(t *testing.T) {
	color.NoColor = true
	rows := []annotations.Row{
		{Frame: 3, Label: "dog", Conf1: 0.6, Conf2: 0.4, Has1: true, Has2: true},
	}

	var buf bytes.Buffer
	render(&buf, rows, false)
	out := buf.String()
	assert.Contains(t, strings.ToUpper(out), "FILE 1 CONFIDENCE")
	assert.Contains(t, out, "dog")
	assert.Contains(t, out, "-0.20")
}

func TestColorChange(t *testing.T) {
	color.NoColor = false
	defer func() { color.NoColor = true }()

	up := annotations.Row{Conf1: 0.5, Conf2: 0.6, Has1: true, Has2: true}
	down := annotations.Row{Conf1: 0.6, Conf2: 0.5, Has1: true, Has2: true}
	missing := annotations.Row{Conf1: 0.6, Has1: true}

	assert.Equal(t, color.GreenString("+0.10"), colorChange(up))
	assert.Equal(t, color.RedString("-0.10"), colorChange(down))
	assert.Equal(t, "-", colorChange(missing))
	assert.NotEqual(t, "+0.10", colorChange(up))
}
