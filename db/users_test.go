package db

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestUserByEmail(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Fatalf("failed to reset db: %v", err)
		}
	}()
	c := qt.New(t)
	// test not found user
	user, err := testDB.UserByEmail(testDBUserEmail)
	c.Assert(user, qt.IsNil)
	c.Assert(err, qt.Equals, ErrNotFound)
	// create a new user with the email
	_, err = testDB.SetUser(&User{
		Email:    testDBUserEmail,
		Password: testDBUserPass,
		Name:     testDBUserName,
	})
	c.Assert(err, qt.IsNil)
	// test found user
	user, err = testDB.UserByEmail(testDBUserEmail)
	c.Assert(err, qt.IsNil)
	c.Assert(user, qt.Not(qt.IsNil))
	c.Assert(user.Email, qt.Equals, testDBUserEmail)
	c.Assert(user.Password, qt.Equals, testDBUserPass)
	c.Assert(user.Name, qt.Equals, testDBUserName)
}

func TestUser(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Fatalf("failed to reset db: %v", err)
		}
	}()
	c := qt.New(t)
	// test not found user
	user, err := testDB.User(100)
	c.Assert(user, qt.IsNil)
	c.Assert(err, qt.Equals, ErrNotFound)
	// create a new user
	id, err := testDB.SetUser(&User{
		Email:    testDBUserEmail,
		Password: testDBUserPass,
		Name:     testDBUserName,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, uint64(1))
	// test found user by ID
	user, err = testDB.User(id)
	c.Assert(err, qt.IsNil)
	c.Assert(user, qt.Not(qt.IsNil))
	c.Assert(user.Email, qt.Equals, testDBUserEmail)
	// sequential IDs
	id2, err := testDB.SetUser(&User{
		Email:    "second@example.com",
		Password: testDBUserPass,
		Name:     "Second User",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(id2, qt.Equals, uint64(2))
	// duplicated email must be rejected
	_, err = testDB.SetUser(&User{
		Email:    testDBUserEmail,
		Password: testDBUserPass,
		Name:     "Dup User",
	})
	c.Assert(err, qt.Equals, ErrInvalidData)
}

func TestAddUserBalance(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Fatalf("failed to reset db: %v", err)
		}
	}()
	c := qt.New(t)
	// unknown user
	c.Assert(testDB.AddUserBalance(42, 10), qt.Equals, ErrNotFound)
	// create a user and credit it twice
	id, err := testDB.SetUser(&User{
		Email:    testDBUserEmail,
		Password: testDBUserPass,
		Name:     testDBUserName,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(testDB.AddUserBalance(id, 100), qt.IsNil)
	c.Assert(testDB.AddUserBalance(id, 50.5), qt.IsNil)
	user, err := testDB.User(id)
	c.Assert(err, qt.IsNil)
	c.Assert(user.Balance, qt.Equals, 150.5)
}
