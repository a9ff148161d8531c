package csvio

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader("Timestamp,Speed\n2024-03-01 08:30:00,12.5\n2024-03-01 09:30:00,11.9\n"))

	header, err := r.Header()
	require.NoError(t, err)
	assert.Equal(t, []string{"Timestamp", "Speed"}, header)

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Timestamp": "2024-03-01 08:30:00", "Speed": "12.5"}, row)

	row, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Timestamp": "2024-03-01 09:30:00", "Speed": "11.9"}, row)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderHeaderIsImplicit(t *testing.T) {
	// Next without a prior Header call still consumes the header row first.
	r := NewReader(strings.NewReader("A,B\n1,2\n"))
	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, row)
}

func TestReaderRaggedRows(t *testing.T) {
	r := NewReader(strings.NewReader("A,B,C\n1,2\n1,2,3,4\n"))

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, row, "short row leaves trailing columns unset")

	row, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "2", "C": "3"}, row, "cells beyond the header are dropped")
}

func TestReaderStripsBOM(t *testing.T) {
	r := NewReader(strings.NewReader("﻿Name,Value\nx,1\n"))
	header, err := r.Header()
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Value"}, header)
}

func TestReaderSkipsLeadingBlankLines(t *testing.T) {
	r := NewReader(strings.NewReader("\n\n   \nName,Value\nx,1\n"))

	header, err := r.Header()
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Value"}, header)

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Name": "x", "Value": "1"}, row)
}

func TestReaderEmptyInput(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	_, err := r.Header()
	assert.ErrorIs(t, err, io.EOF)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderQuotedFields(t *testing.T) {
	r := NewReader(strings.NewReader("Remarks,Speed\n\"rough, breaking seas\",8.2\n\"two\nlines\",9.0\n"))

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "rough, breaking seas", row["Remarks"])

	row, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "two\nlines", row["Remarks"])
}

func TestReaderCRLF(t *testing.T) {
	r := NewReader(strings.NewReader("A,B\r\n1,2\r\n"))
	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, row)
}
