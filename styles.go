package main

import "wave-portal-tui/styles"

// -------------------- THEME (Lip Gloss) --------------------
// Styles come from the styles package

var (
	cMuted   = styles.CMuted
	cAccent  = styles.CAccent
	cAccent2 = styles.CAccent2
	cBorder  = styles.CBorder

	appStyle   = styles.AppStyle
	titleStyle = styles.TitleStyle
	panelStyle = styles.PanelStyle
)
