package store

import "github.com/sirupsen/logrus"

// Routes the store navigates to.
const (
	RouteConfirmation = "Confirmation"
	RouteHome         = "home"
)

// Navigator moves the UI to a named view.
type Navigator interface {
	Push(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

// Push implements Navigator.
func (f NavigatorFunc) Push(route string) { f(route) }

// NopNavigator ignores navigation.
type NopNavigator struct{}

// Push implements Navigator.
func (NopNavigator) Push(string) {}

// LogNavigator logs each navigation, for front ends without views.
type LogNavigator struct {
	Log logrus.FieldLogger
}

// Push implements Navigator.
func (n LogNavigator) Push(route string) {
	n.Log.WithField("route", route).Info("Navigate")
}
