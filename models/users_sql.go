package models

import (
	"database/sql"
	"errors"

	"eventsapi/utils"
)

type sqlUserRepo struct{ db *sql.DB }

func NewSQLUserRepository(db *sql.DB) UserRepository { return &sqlUserRepo{db} }

func (r *sqlUserRepo) Create(u *User) error {
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed

	return r.db.QueryRow(
		`INSERT INTO users(email, password) VALUES ($1,$2) RETURNING id`,
		u.Email, u.Password,
	).Scan(&u.ID)
}

func (r *sqlUserRepo) ValidateCredentials(email, plain string) (User, error) {
	var u User
	err := r.db.QueryRow(`SELECT id, email, password FROM users WHERE email=$1`, email).
		Scan(&u.ID, &u.Email, &u.Password)
	if err != nil {
		return User{}, errors.New("invalid credentials")
	}

	if !utils.CheckPasswordHash(plain, u.Password) {
		return User{}, errors.New("invalid credentials")
	}

	return u, nil
}

func (r *sqlUserRepo) GetByID(id int64) (User, error) {
	var u User
	err := r.db.QueryRow(`SELECT id, email FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Email)
	if err != nil {
		return User{}, err
	}
	return u, nil
}
