package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

func (te *TestEnv) Login(email string, pass string) error {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": pass,
	})
	if err != nil {
		return err
	}

	w, err := te.client.Post(te.URL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		return fmt.Errorf("login as %s failed: status code %s", email, w.Status)
	}

	return nil
}

func (te *TestEnv) Logout() error {
	w, err := te.client.Post(te.URL+"/auth/logout", "application/json", nil)
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		return fmt.Errorf("logout failed: status code %s", w.Status)
	}

	return nil
}
