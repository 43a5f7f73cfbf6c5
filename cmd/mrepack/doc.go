// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the mrepack command-line interface.
//
// Commands are built around an App composition root so tests can swap the
// settings provider and the merge engine. Errors are mapped to process exit
// codes by Execute; see exitCodeFor.
package cmd
